package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/types"
)

// Establishment is a merchant storefront offering surplus bags.
type Establishment struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID      uuid.UUID            `gorm:"column:owner_user_id;type:uuid;not null"`
	Name             string               `gorm:"column:name;not null"`
	Category         string               `gorm:"column:category;not null"`
	Latitude         float64              `gorm:"column:latitude;not null"`
	Longitude        float64              `gorm:"column:longitude;not null"`
	Hours            types.OperatingHours `gorm:"column:hours;type:jsonb;serializer:json"`
	IsOpen           bool                 `gorm:"column:is_open;not null;default:true"`
	IsPromoted       bool                 `gorm:"column:is_promoted;not null;default:false"`
	BoostFeeCents    int64                `gorm:"column:boost_fee_cents;not null;default:0"`
	PagSeguroAccount string               `gorm:"column:pagseguro_account;not null"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
