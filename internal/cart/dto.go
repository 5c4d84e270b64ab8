package cart

import (
	"github.com/google/uuid"
)

// ItemSelection is one (bag, quantity) pair from the client's cart.
type ItemSelection struct {
	BagID    uuid.UUID `json:"bag_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

// QuoteInput is the full cart to aggregate.
type QuoteInput struct {
	Items []ItemSelection `json:"items" validate:"required,min=1,dive"`
}

// QuotedItem is one cart line after availability and price resolution.
type QuotedItem struct {
	BagID          uuid.UUID `json:"bag_id"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Unavailable    bool      `json:"unavailable"`
	Reason         string    `json:"reason,omitempty"`
}

// MerchantGroup collects a single establishment's quoted lines.
type MerchantGroup struct {
	EstablishmentID uuid.UUID    `json:"establishment_id"`
	SubtotalCents   int64        `json:"subtotal_cents"`
	Items           []QuotedItem `json:"items"`
}

// QuoteResult is the aggregated cart. TotalCents always equals the sum of the
// group subtotals; unavailable lines carry zero subtotal and are flagged, not
// dropped.
type QuoteResult struct {
	Groups         []MerchantGroup `json:"groups"`
	TotalCents     int64           `json:"total_cents"`
	HasUnavailable bool            `json:"has_unavailable"`
}
