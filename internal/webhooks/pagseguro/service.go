package pagsegurowebhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

type paymentMarker interface {
	MarkPaid(ctx context.Context, intentID uuid.UUID, paidAt time.Time) error
}

type ServiceParams struct {
	Checkout paymentMarker
}

// Service applies PagSeguro charge notifications to payment intents.
type Service struct {
	checkout paymentMarker
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	return &Service{checkout: params.Checkout}, nil
}

// ChargeEvent is the notification body PagSeguro posts after a charge
// changes state. ReferenceID carries our payment intent ID.
type ChargeEvent struct {
	EventID     string     `json:"event_id"`
	ChargeID    string     `json:"charge_id"`
	ReferenceID string     `json:"reference_id"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at"`
}

// HandleEvent processes one charge notification. Paid charges mark the intent;
// everything else is acknowledged and dropped, since declines are retried by
// the customer and expiry is driven by the worker, not the gateway.
func (s *Service) HandleEvent(ctx context.Context, event *ChargeEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge event required")
	}
	if event.ReferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id missing")
	}

	switch strings.ToUpper(event.Status) {
	case "PAID":
		intentID, err := uuid.Parse(event.ReferenceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reference id is not a payment intent")
		}
		paidAt := time.Now().UTC()
		if event.PaidAt != nil {
			paidAt = event.PaidAt.UTC()
		}
		return s.checkout.MarkPaid(ctx, intentID, paidAt)
	default:
		return nil
	}
}
