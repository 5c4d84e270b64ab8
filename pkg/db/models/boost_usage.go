package models

import (
	"time"

	"github.com/google/uuid"
)

// BoostUsage records the fee charged the moment a boost was activated.
// Rows are immutable; later changes to an establishment's boost_fee must not
// alter historical usages.
type BoostUsage struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID `gorm:"column:establishment_id;type:uuid;not null"`
	BagID           uuid.UUID `gorm:"column:bag_id;type:uuid;not null"`
	FeeAtTimeCents  int64     `gorm:"column:fee_at_time_cents;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
