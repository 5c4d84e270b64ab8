package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/internal/orders"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
)

// ItemSelection is one (bag, quantity) line the customer is buying.
type ItemSelection struct {
	BagID    uuid.UUID `json:"bag_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

// CheckoutInput is the full checkout request.
type CheckoutInput struct {
	UserID      uuid.UUID
	Items       []ItemSelection
	Method      enums.PaymentMethod
	CardToken   string
	SavedCardID string

	// SaveCard persists a masked reference after a successful card charge.
	SaveCard       bool
	CardBrand      string
	CardLast4      string
	CardHolderName string
}

// CheckoutResult is the created intent plus its child orders, voucher codes
// included so the client can render them immediately.
type CheckoutResult struct {
	PaymentIntentID uuid.UUID           `json:"payment_intent_id"`
	Status          enums.PaymentStatus `json:"status"`
	Method          enums.PaymentMethod `json:"method"`
	TotalCents      int64               `json:"total_cents"`
	QRText          string              `json:"qr_text,omitempty"`
	QRImageURL      string              `json:"qr_image_url,omitempty"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
	Orders          []orders.OrderView  `json:"orders"`
}
