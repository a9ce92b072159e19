package cards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
)

// Repository persists saved card references.
type Repository interface {
	Create(ctx context.Context, card *models.SavedCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SavedCard, error)
	FindByEmailAndMask(ctx context.Context, email, mask string) (*models.SavedCard, error)
	ListByEmail(ctx context.Context, email string) ([]models.SavedCard, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a saved-card repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, card *models.SavedCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SavedCard, error) {
	var card models.SavedCard
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repository) ListByEmail(ctx context.Context, email string) ([]models.SavedCard, error) {
	var cards []models.SavedCard
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repository) FindByEmailAndMask(ctx context.Context, email, mask string) (*models.SavedCard, error) {
	var card models.SavedCard
	err := r.db.WithContext(ctx).
		Where("email = ? AND card_mask = ?", email, mask).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}
