package cart

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

type stubBagLoader struct {
	bags map[uuid.UUID]models.Bag
}

func (s *stubBagLoader) FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error) {
	var out []models.Bag
	for _, id := range ids {
		if bag, ok := s.bags[id]; ok {
			out = append(out, bag)
		}
	}
	return out, nil
}

func newQuoteService(t *testing.T, loader *stubBagLoader) Service {
	t.Helper()
	svc, err := NewService(loader, 50)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func activeBag(establishmentID uuid.UUID, title string, priceCents int64, qty int) models.Bag {
	return models.Bag{
		ID:                   uuid.New(),
		EstablishmentID:      establishmentID,
		Title:                title,
		DiscountedPriceCents: priceCents,
		Quantity:             qty,
		PickupEnd:            time.Now().Add(4 * time.Hour),
		IsActive:             true,
	}
}

func TestQuoteGroupsByMerchantAndSumsTotals(t *testing.T) {
	padariaID := uuid.New()
	mercadoID := uuid.New()
	pao := activeBag(padariaID, "Sacola da Padaria", 1290, 10)
	doce := activeBag(padariaID, "Sacola Doce", 990, 10)
	feira := activeBag(mercadoID, "Sacola da Feira", 2550, 10)
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{
		pao.ID: pao, doce.ID: doce, feira.ID: feira,
	}}
	svc := newQuoteService(t, loader)

	result, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: feira.ID, Quantity: 1},
		{BagID: pao.ID, Quantity: 2},
		{BagID: doce.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if len(result.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(result.Groups))
	}
	var groupSum int64
	for _, group := range result.Groups {
		var itemSum int64
		for _, item := range group.Items {
			itemSum += item.SubtotalCents
		}
		if itemSum != group.SubtotalCents {
			t.Fatalf("group %s subtotal %d != item sum %d", group.EstablishmentID, group.SubtotalCents, itemSum)
		}
		groupSum += group.SubtotalCents
	}
	if groupSum != result.TotalCents {
		t.Fatalf("total %d != group sum %d", result.TotalCents, groupSum)
	}
	if result.TotalCents != 2*1290+990+2550 {
		t.Fatalf("total = %d", result.TotalCents)
	}
	if result.HasUnavailable {
		t.Fatal("nothing should be unavailable")
	}
}

func TestQuoteIsDeterministicAcrossInputOrder(t *testing.T) {
	estA := uuid.New()
	estB := uuid.New()
	a := activeBag(estA, "A", 1000, 5)
	b := activeBag(estB, "B", 2000, 5)
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{a.ID: a, b.ID: b}}
	svc := newQuoteService(t, loader)

	first, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: a.ID, Quantity: 1}, {BagID: b.ID, Quantity: 2},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	second, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: b.ID, Quantity: 2}, {BagID: a.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if !reflect.DeepEqual(first.Groups, second.Groups) {
		t.Fatalf("group order depends on input order:\n%+v\n%+v", first.Groups, second.Groups)
	}
	if first.TotalCents != second.TotalCents {
		t.Fatalf("totals differ: %d vs %d", first.TotalCents, second.TotalCents)
	}
}

func TestQuoteFlagsUnavailableLinesWhole(t *testing.T) {
	estID := uuid.New()
	scarce := activeBag(estID, "Quase Esgotada", 1500, 1)
	closed := activeBag(estID, "Janela Fechada", 1000, 5)
	closed.PickupEnd = time.Now().Add(-time.Hour)
	inactive := activeBag(estID, "Pausada", 800, 5)
	inactive.IsActive = false
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{
		scarce.ID: scarce, closed.ID: closed, inactive.ID: inactive,
	}}
	svc := newQuoteService(t, loader)

	result, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: scarce.ID, Quantity: 3},
		{BagID: closed.ID, Quantity: 1},
		{BagID: inactive.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if !result.HasUnavailable {
		t.Fatal("expected unavailable flag")
	}
	if result.TotalCents != 0 {
		t.Fatalf("total = %d, unavailable lines must not contribute", result.TotalCents)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(result.Groups))
	}
	reasons := map[uuid.UUID]string{}
	for _, item := range result.Groups[0].Items {
		if !item.Unavailable {
			t.Fatalf("item %s should be unavailable", item.BagID)
		}
		if item.SubtotalCents != 0 {
			t.Fatalf("item %s subtotal = %d, want 0", item.BagID, item.SubtotalCents)
		}
		reasons[item.BagID] = item.Reason
	}
	// The scarce line is flagged whole, never trimmed to the remaining unit.
	if reasons[scarce.ID] != reasonOutOfStock {
		t.Fatalf("scarce reason = %q", reasons[scarce.ID])
	}
	if reasons[closed.ID] != reasonWindowClosed {
		t.Fatalf("closed reason = %q", reasons[closed.ID])
	}
	if reasons[inactive.ID] != reasonInactive {
		t.Fatalf("inactive reason = %q", reasons[inactive.ID])
	}
}

func TestQuoteKeepsUnknownBagVisible(t *testing.T) {
	est := uuid.New()
	known := activeBag(est, "Conhecida", 1000, 5)
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{known.ID: known}}
	svc := newQuoteService(t, loader)

	ghost := uuid.New()
	result, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: known.ID, Quantity: 1},
		{BagID: ghost, Quantity: 2},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !result.HasUnavailable {
		t.Fatal("expected unavailable flag")
	}

	var found bool
	for _, group := range result.Groups {
		for _, item := range group.Items {
			if item.BagID == ghost {
				found = true
				if item.Reason != reasonNotFound {
					t.Fatalf("ghost reason = %q", item.Reason)
				}
			}
		}
	}
	if !found {
		t.Fatal("rejected line missing from the quote")
	}
	if result.TotalCents != 1000 {
		t.Fatalf("total = %d, want 1000", result.TotalCents)
	}
}

func TestQuoteMergesDuplicateSelections(t *testing.T) {
	est := uuid.New()
	bag := activeBag(est, "Repetida", 700, 10)
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{bag.ID: bag}}
	svc := newQuoteService(t, loader)

	result, err := svc.Quote(context.Background(), QuoteInput{Items: []ItemSelection{
		{BagID: bag.ID, Quantity: 1},
		{BagID: bag.ID, Quantity: 3},
	}})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(result.Groups) != 1 || len(result.Groups[0].Items) != 1 {
		t.Fatalf("expected one merged line, got %+v", result.Groups)
	}
	item := result.Groups[0].Items[0]
	if item.Quantity != 4 || item.SubtotalCents != 2800 {
		t.Fatalf("merged line = %+v", item)
	}
}

func TestQuoteRejectsEmptyAndOversizedCarts(t *testing.T) {
	est := uuid.New()
	bag := activeBag(est, "Limite", 500, 100)
	loader := &stubBagLoader{bags: map[uuid.UUID]models.Bag{bag.ID: bag}}
	svc, err := NewService(loader, 2)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Quote(context.Background(), QuoteInput{}); err == nil {
		t.Fatal("empty cart should fail")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", pkgerrors.As(err).Code())
	}

	oversized := QuoteInput{Items: []ItemSelection{
		{BagID: uuid.New(), Quantity: 1},
		{BagID: uuid.New(), Quantity: 1},
		{BagID: uuid.New(), Quantity: 1},
	}}
	if _, err := svc.Quote(context.Background(), oversized); err == nil {
		t.Fatal("oversized cart should fail")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", pkgerrors.As(err).Code())
	}
}
