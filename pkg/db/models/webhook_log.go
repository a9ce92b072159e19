package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookLog is the append-only audit record of a single delivery attempt.
// Rows are never updated after insertion; one row per attempt.
type WebhookLog struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PaymentID      uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	WebhookURL     string    `gorm:"column:webhook_url;not null"`
	Payload        string    `gorm:"column:payload;not null"`
	Signature      string    `gorm:"column:signature;not null"`
	AttemptNumber  int       `gorm:"column:attempt_number;not null"`
	ResponseStatus *int      `gorm:"column:response_status"`
	ResponseBody   *string   `gorm:"column:response_body"`
	Success        bool      `gorm:"column:success;not null;default:false"`
	ErrorMessage   *string   `gorm:"column:error_message"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the gorm default.
func (WebhookLog) TableName() string { return "webhook_logs" }
