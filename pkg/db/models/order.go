package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// Order is one reserved bag purchase. AmountCents is frozen at creation and
// never rewritten, even when the bag's price changes later. The first hex
// characters of ID double as the customer-facing voucher code.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	BagID             uuid.UUID           `gorm:"column:bag_id;type:uuid;not null"`
	EstablishmentID   uuid.UUID           `gorm:"column:establishment_id;type:uuid;not null"`
	PaymentIntentID   uuid.UUID           `gorm:"column:payment_intent_id;type:uuid;not null"`
	Quantity          int                 `gorm:"column:quantity;not null"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	MerchantConfirmed bool                `gorm:"column:merchant_confirmed;not null;default:false"`
	CustomerConfirmed bool                `gorm:"column:customer_confirmed;not null;default:false"`
	CollectedAt       *time.Time          `gorm:"column:collected_at"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
	ExpiredAt         *time.Time          `gorm:"column:expired_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
