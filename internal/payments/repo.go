package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
	"github.com/acquiremock/acquiremock-backend/pkg/enums"
)

// Repository persists payments and their side records. Lookups return
// (nil, nil) when no row matches so callers can map absence to domain errors.
type Repository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)

	// UpdateStatusFrom applies updates only while the row still holds the
	// expected status. Reports whether a row changed; false means another
	// actor transitioned the payment first.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from enums.PaymentStatus, updates map[string]any) (bool, error)

	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
	FindRetryableWebhooks(ctx context.Context, maxAttempts, limit int) ([]models.Payment, error)
	RecordWebhookAttempt(ctx context.Context, id uuid.UUID, attempts int, at time.Time, status enums.WebhookStatus) error

	CreateSuccessfulOperation(ctx context.Context, op *models.SuccessfulOperation) error
	ListRecentOperationsByEmail(ctx context.Context, email string, limit int) ([]models.SuccessfulOperation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from enums.PaymentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", enums.PaymentStatusPending, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) FindRetryableWebhooks(ctx context.Context, maxAttempts, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	q := r.db.WithContext(ctx).
		Where("status = ? AND webhook_status = ? AND webhook_attempts < ?",
			enums.PaymentStatusPaid, enums.WebhookStatusFailed, maxAttempts).
		Order("webhook_last_attempt ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) RecordWebhookAttempt(ctx context.Context, id uuid.UUID, attempts int, at time.Time, status enums.WebhookStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"webhook_attempts":     attempts,
			"webhook_last_attempt": at,
			"webhook_status":       status,
		}).Error
}

func (r *repository) CreateSuccessfulOperation(ctx context.Context, op *models.SuccessfulOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *repository) ListRecentOperationsByEmail(ctx context.Context, email string, limit int) ([]models.SuccessfulOperation, error) {
	var ops []models.SuccessfulOperation
	q := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}
