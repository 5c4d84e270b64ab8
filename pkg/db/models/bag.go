package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Bag is a sellable unit of surplus food with a finite quantity.
// Quantity only ever changes through the conditional decrement/restore
// helpers; a bag with quantity 0 is not purchasable regardless of IsActive.
type Bag struct {
	ID                   uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID      uuid.UUID      `gorm:"column:establishment_id;type:uuid;not null"`
	Title                string         `gorm:"column:title;not null"`
	OriginalPriceCents   int64          `gorm:"column:original_price_cents;not null"`
	DiscountedPriceCents int64          `gorm:"column:discounted_price_cents;not null"`
	Quantity             int            `gorm:"column:quantity;not null;default:0"`
	PickupStart          time.Time      `gorm:"column:pickup_start;not null"`
	PickupEnd            time.Time      `gorm:"column:pickup_end;not null"`
	IsActive             bool           `gorm:"column:is_active;not null;default:true"`
	IsUrgent             bool           `gorm:"column:is_urgent;not null;default:false"`
	DietaryTags          pq.StringArray `gorm:"column:dietary_tags;type:text[]"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
