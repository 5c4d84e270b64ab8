package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// OrderCreatedEvent signals a paid checkout split into per-establishment orders.
type OrderCreatedEvent struct {
	PaymentIntentID uuid.UUID   `json:"payment_intent_id"`
	OrderIDs        []uuid.UUID `json:"order_ids"`
	UserID          uuid.UUID   `json:"user_id"`
	TotalCents      int64       `json:"total_cents"`
}

// OrderCollectedEvent is emitted when a voucher is redeemed at the counter.
type OrderCollectedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	UserID          uuid.UUID `json:"user_id"`
	Voucher         string    `json:"voucher"`
	CollectedAt     time.Time `json:"collected_at"`
}

// OrderCompletedEvent fires when the customer confirms the pickup.
type OrderCompletedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	UserID          uuid.UUID `json:"user_id"`
	AmountCents     int64     `json:"amount_cents"`
	CompletedAt     time.Time `json:"completed_at"`
}

// OrderExpiredEvent reports a pending PIX order reclaimed by the reaper.
type OrderExpiredEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	EstablishmentID  uuid.UUID `json:"establishment_id"`
	BagID            uuid.UUID `json:"bag_id"`
	RestoredQuantity int       `json:"restored_quantity"`
	ExpiredAt        time.Time `json:"expired_at"`
}

// PaymentIntentCreatedEvent is emitted when checkout opens a gateway charge.
type PaymentIntentCreatedEvent struct {
	PaymentIntentID uuid.UUID           `json:"payment_intent_id"`
	UserID          uuid.UUID           `json:"user_id"`
	Method          enums.PaymentMethod `json:"method"`
	TotalCents      int64               `json:"total_cents"`
	OrderCount      int                 `json:"order_count"`
}

// PaymentIntentPaidEvent confirms the gateway settled the charge.
type PaymentIntentPaidEvent struct {
	PaymentIntentID uuid.UUID `json:"payment_intent_id"`
	UserID          uuid.UUID `json:"user_id"`
	TotalCents      int64     `json:"total_cents"`
	PaidAt          time.Time `json:"paid_at"`
}

// PaymentIntentExpiredEvent reports an unpaid PIX charge past its deadline.
type PaymentIntentExpiredEvent struct {
	PaymentIntentID uuid.UUID `json:"payment_intent_id"`
	UserID          uuid.UUID `json:"user_id"`
	ExpiredAt       time.Time `json:"expired_at"`
}

// BoostActivatedEvent records a merchant paying to promote a bag.
type BoostActivatedEvent struct {
	BoostUsageID    uuid.UUID `json:"boost_usage_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	BagID           uuid.UUID `json:"bag_id"`
	FeeAtTimeCents  int64     `json:"fee_at_time_cents"`
}

// ReviewSubmittedEvent fires once per completed order.
type ReviewSubmittedEvent struct {
	ReviewID        uuid.UUID `json:"review_id"`
	OrderID         uuid.UUID `json:"order_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	Rating          int       `json:"rating"`
}
