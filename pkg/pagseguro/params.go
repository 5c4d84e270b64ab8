package pagseguro

import (
	"time"

	"github.com/google/uuid"
)

// SplitReceiver routes a slice of the charge to a seller account.
type SplitReceiver struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
}

// ChargeCreateParams describes a single gateway charge covering one or more orders.
// The receiver amounts must sum to TotalCents; the gateway rejects partial splits.
type ChargeCreateParams struct {
	ReferenceID    uuid.UUID
	Method         string
	TotalCents     int64
	CardToken      string
	SavedCardID    string
	ExpiresAt      time.Time
	Receivers      []SplitReceiver
	IdempotencyKey string
}

// Charge is the gateway's view of a created charge.
type Charge struct {
	ID          string     `json:"id"`
	ReferenceID string     `json:"reference_id"`
	Status      string     `json:"status"`
	TotalCents  int64      `json:"total_cents"`
	QRText      string     `json:"qr_text,omitempty"`
	QRImageURL  string     `json:"qr_image_url,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type chargeRequest struct {
	ReferenceID   string        `json:"reference_id"`
	PaymentMethod paymentMethod `json:"payment_method"`
	AmountCents   int64         `json:"amount_cents"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	Splits        []splitEntry  `json:"splits"`
}

type paymentMethod struct {
	Type        string `json:"type"`
	CardToken   string `json:"card_token,omitempty"`
	SavedCardID string `json:"saved_card_id,omitempty"`
}

type splitEntry struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (p ChargeCreateParams) toRequest() chargeRequest {
	req := chargeRequest{
		ReferenceID: p.ReferenceID.String(),
		PaymentMethod: paymentMethod{
			Type:        p.Method,
			CardToken:   p.CardToken,
			SavedCardID: p.SavedCardID,
		},
		AmountCents: p.TotalCents,
		Splits:      make([]splitEntry, 0, len(p.Receivers)),
	}
	if !p.ExpiresAt.IsZero() {
		expires := p.ExpiresAt
		req.ExpiresAt = &expires
	}
	for _, r := range p.Receivers {
		req.Splits = append(req.Splits, splitEntry{AccountID: r.AccountID, AmountCents: r.AmountCents})
	}
	return req
}
