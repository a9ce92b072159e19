package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SuccessfulOperation is the immutable receipt record written exactly once per
// paid payment. The unique payment_id constraint is what makes finalization
// idempotent.
type SuccessfulOperation struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	PaymentID   uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	Email       string          `gorm:"column:email;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference   string          `gorm:"column:reference;not null"`
	CardMask    string          `gorm:"column:card_mask;not null"`
	RedirectURL string          `gorm:"column:redirect_url;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the gorm default.
func (SuccessfulOperation) TableName() string { return "successful_operations" }
