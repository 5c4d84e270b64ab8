package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// RedeemInput is a merchant typing a voucher code at the counter.
type RedeemInput struct {
	EstablishmentID uuid.UUID
	Code            string
	ActorUserID     uuid.UUID
}

// ConfirmPickupInput is the customer confirming they received the bag.
type ConfirmPickupInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

// OrderView is the API shape of an order, voucher included.
type OrderView struct {
	ID                uuid.UUID           `json:"id"`
	Voucher           string              `json:"voucher"`
	BagID             uuid.UUID           `json:"bag_id"`
	EstablishmentID   uuid.UUID           `json:"establishment_id"`
	PaymentIntentID   uuid.UUID           `json:"payment_intent_id"`
	Quantity          int                 `json:"quantity"`
	AmountCents       int64               `json:"amount_cents"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	MerchantConfirmed bool                `json:"merchant_confirmed"`
	CustomerConfirmed bool                `json:"customer_confirmed"`
	CollectedAt       *time.Time          `json:"collected_at,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NewOrderView maps a model row to its API shape.
func NewOrderView(order models.Order, voucherLength int) OrderView {
	return OrderView{
		ID:                order.ID,
		Voucher:           FormatVoucher(order.ID, voucherLength),
		BagID:             order.BagID,
		EstablishmentID:   order.EstablishmentID,
		PaymentIntentID:   order.PaymentIntentID,
		Quantity:          order.Quantity,
		AmountCents:       order.AmountCents,
		Status:            order.Status,
		PaymentMethod:     order.PaymentMethod,
		MerchantConfirmed: order.MerchantConfirmed,
		CustomerConfirmed: order.CustomerConfirmed,
		CollectedAt:       order.CollectedAt,
		CompletedAt:       order.CompletedAt,
		CreatedAt:         order.CreatedAt,
	}
}
