package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acquiremock/acquiremock-backend/pkg/db/models"
)

// LogRepository appends to the delivery audit trail. Rows are never updated
// or deleted; every attempt leaves its own record.
type LogRepository interface {
	Append(ctx context.Context, entry *models.WebhookLog) error
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.WebhookLog, error)
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository builds the audit-log repository bound to the provided DB.
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, entry *models.WebhookLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.WebhookLog, error) {
	var entries []models.WebhookLog
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("attempt_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
