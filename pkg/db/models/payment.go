package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acquiremock/acquiremock-backend/pkg/enums"
)

// Payment is the aggregate root of the checkout flow. Rows are never deleted;
// terminal payments stay behind as the audit trail.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference   string              `gorm:"column:reference;not null"`
	WebhookURL  string              `gorm:"column:webhook_url;not null"`
	RedirectURL string              `gorm:"column:redirect_url;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;not null;default:'pending';index"`

	PayerEmail     *string `gorm:"column:payer_email"`
	OTPCode        *string `gorm:"column:otp_code"`
	CardMask       *string `gorm:"column:card_mask"`
	IdempotencyKey *string `gorm:"column:idempotency_key;uniqueIndex"`
	PSPTxID        *string `gorm:"column:psp_tx_id"`
	ErrorCode      *string `gorm:"column:error_code"`
	ErrorMessage   *string `gorm:"column:error_message"`

	WebhookAttempts    int                 `gorm:"column:webhook_attempts;not null;default:0"`
	WebhookLastAttempt *time.Time          `gorm:"column:webhook_last_attempt"`
	WebhookStatus      enums.WebhookStatus `gorm:"column:webhook_status;not null;default:'pending'"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
}

// TableName overrides the gorm default.
func (Payment) TableName() string { return "payments" }

// IsExpiredAt reports whether the payment's checkout window has passed.
func (p *Payment) IsExpiredAt(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
