package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is the single customer review allowed per completed order.
// Uniqueness is enforced at the database level (ux_reviews_order_id), not
// inferred from joins.
type Review struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_reviews_order_id"`
	EstablishmentID uuid.UUID `gorm:"column:establishment_id;type:uuid;not null"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Rating          int       `gorm:"column:rating;not null"`
	Comment         *string   `gorm:"column:comment"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
