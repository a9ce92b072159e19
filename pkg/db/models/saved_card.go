package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedCard is a payer's reusable card reference. The PAN and CVV are stored
// only as one-way argon2id hashes; the mask is the only displayable remnant.
type SavedCard struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email          string    `gorm:"column:email;not null;index:idx_saved_cards_email_mask"`
	CardNumberHash string    `gorm:"column:card_number_hash;not null"`
	CVVHash        string    `gorm:"column:cvv_hash;not null"`
	CardMask       string    `gorm:"column:card_mask;not null;index:idx_saved_cards_email_mask"`
	Expiry         string    `gorm:"column:expiry;not null"`
	Provider       string    `gorm:"column:provider;not null;default:'mock'"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the gorm default.
func (SavedCard) TableName() string { return "saved_cards" }
