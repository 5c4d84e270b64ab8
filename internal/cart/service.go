package cart

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

const (
	reasonNotFound     = "bag not found"
	reasonInactive     = "bag no longer offered"
	reasonOutOfStock   = "insufficient quantity"
	reasonWindowClosed = "pickup window closed"
)

type bagLoader interface {
	FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error)
}

// Service aggregates cart selections into per-merchant quotes.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
}

type service struct {
	bags     bagLoader
	maxItems int
	now      func() time.Time
}

// NewService builds the cart aggregator. maxItems caps distinct cart lines.
func NewService(bags bagLoader, maxItems int) (Service, error) {
	if bags == nil {
		return nil, fmt.Errorf("bag loader required")
	}
	if maxItems <= 0 {
		maxItems = 50
	}
	return &service{bags: bags, maxItems: maxItems, now: time.Now}, nil
}

// Quote is read-only and deterministic: the same selections against the same
// catalog rows produce the same groups, subtotals, and total. It never
// truncates quantities; a line that cannot be fully served is flagged whole.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if len(input.Items) > s.maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart exceeds %d lines", s.maxItems))
	}

	merged := make(map[uuid.UUID]int, len(input.Items))
	order := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.BagID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, seen := merged[item.BagID]; !seen {
			order = append(order, item.BagID)
		}
		merged[item.BagID] += item.Quantity
	}

	bags, err := s.bags.FindBags(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bags")
	}
	byID := make(map[uuid.UUID]models.Bag, len(bags))
	for _, bag := range bags {
		byID[bag.ID] = bag
	}

	now := s.now()
	groups := make(map[uuid.UUID]*MerchantGroup)
	result := &QuoteResult{}

	for _, bagID := range order {
		qty := merged[bagID]
		bag, found := byID[bagID]

		item := QuotedItem{BagID: bagID, Quantity: qty}
		var establishmentID uuid.UUID
		switch {
		case !found:
			item.Unavailable = true
			item.Reason = reasonNotFound
		case !bag.IsActive:
			establishmentID = bag.EstablishmentID
			item.Title = bag.Title
			item.Unavailable = true
			item.Reason = reasonInactive
		case now.After(bag.PickupEnd):
			establishmentID = bag.EstablishmentID
			item.Title = bag.Title
			item.Unavailable = true
			item.Reason = reasonWindowClosed
		case bag.Quantity < qty:
			establishmentID = bag.EstablishmentID
			item.Title = bag.Title
			item.Unavailable = true
			item.Reason = reasonOutOfStock
		default:
			establishmentID = bag.EstablishmentID
			item.Title = bag.Title
			item.UnitPriceCents = bag.DiscountedPriceCents
			item.SubtotalCents = bag.DiscountedPriceCents * int64(qty)
		}

		if item.Unavailable {
			result.HasUnavailable = true
		}
		if establishmentID == uuid.Nil {
			// Unknown bag: surface it in a group of its own so the client
			// still sees the rejected line.
			establishmentID = bagID
		}

		group, ok := groups[establishmentID]
		if !ok {
			group = &MerchantGroup{EstablishmentID: establishmentID}
			groups[establishmentID] = group
		}
		group.Items = append(group.Items, item)
		group.SubtotalCents += item.SubtotalCents
	}

	keys := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, id := range keys {
		group := groups[id]
		result.Groups = append(result.Groups, *group)
		result.TotalCents += group.SubtotalCents
	}
	return result, nil
}
