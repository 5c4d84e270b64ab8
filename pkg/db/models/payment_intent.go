package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// PaymentIntent is the parent payment record for one checkout. It owns every
// order created from the cart; the gateway call is keyed to the intent, never
// to an individual child order.
type PaymentIntent struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Method     enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status     enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'awaiting_payment'"`
	TotalCents int64               `gorm:"column:total_cents;not null"`
	QRText     *string             `gorm:"column:qr_text"`
	QRImageURL *string             `gorm:"column:qr_image_url"`
	ExpiresAt  *time.Time          `gorm:"column:expires_at"`
	PaidAt     *time.Time          `gorm:"column:paid_at"`
	Orders     []Order             `gorm:"foreignKey:PaymentIntentID"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
