package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedCard stores only the masked representation of a customer card.
// The raw PAN never reaches this table; tokenization happens at the gateway.
type SavedCard struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Brand      string    `gorm:"column:brand;not null"`
	Last4      string    `gorm:"column:last4;not null"`
	HolderName string    `gorm:"column:holder_name;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
