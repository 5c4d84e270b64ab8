package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

type stubCatalogRepo struct {
	bags    map[uuid.UUID]*models.Bag
	updates map[uuid.UUID]map[string]any
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		bags:    make(map[uuid.UUID]*models.Bag),
		updates: make(map[uuid.UUID]map[string]any),
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindEstablishmentByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Establishment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindBag(ctx context.Context, id uuid.UUID) (*models.Bag, error) {
	bag, ok := s.bags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return bag, nil
}

func (s *stubCatalogRepo) FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error) {
	return nil, nil
}

func (s *stubCatalogRepo) ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error) {
	var out []models.Bag
	for _, bag := range s.bags {
		if bag.EstablishmentID == establishmentID && bag.IsActive {
			out = append(out, *bag)
		}
	}
	return out, nil
}

func (s *stubCatalogRepo) CreateBag(ctx context.Context, bag *models.Bag) (*models.Bag, error) {
	if bag.ID == uuid.Nil {
		bag.ID = uuid.New()
	}
	s.bags[bag.ID] = bag
	return bag, nil
}

func (s *stubCatalogRepo) UpdateBag(ctx context.Context, bagID uuid.UUID, updates map[string]any) error {
	s.updates[bagID] = updates
	return nil
}

func (s *stubCatalogRepo) UpdateEstablishment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	return nil
}

func (s *stubCatalogRepo) DecrementQuantity(ctx context.Context, bagID uuid.UUID, qty int) (bool, error) {
	return false, nil
}

func (s *stubCatalogRepo) RestoreQuantity(ctx context.Context, bagID uuid.UUID, qty int) error {
	return nil
}

func validCreateInput(establishmentID uuid.UUID) CreateBagInput {
	now := time.Now()
	return CreateBagInput{
		EstablishmentID:      establishmentID,
		Title:                "Sacola Surpresa",
		OriginalPriceCents:   3000,
		DiscountedPriceCents: 1200,
		Quantity:             5,
		PickupStart:          now.Add(time.Hour),
		PickupEnd:            now.Add(4 * time.Hour),
	}
}

func TestCreateBagActivatesByDefault(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	bag, err := svc.CreateBag(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("create bag: %v", err)
	}
	if !bag.IsActive {
		t.Fatal("new bag should start active")
	}
	if bag.Quantity != 5 || bag.DiscountedPriceCents != 1200 {
		t.Fatalf("bag = %+v", bag)
	}
}

func TestCreateBagValidation(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	estID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*CreateBagInput)
	}{
		{"missing establishment", func(i *CreateBagInput) { i.EstablishmentID = uuid.Nil }},
		{"missing title", func(i *CreateBagInput) { i.Title = "" }},
		{"zero original price", func(i *CreateBagInput) { i.OriginalPriceCents = 0 }},
		{"discount above original", func(i *CreateBagInput) { i.DiscountedPriceCents = 9000 }},
		{"negative quantity", func(i *CreateBagInput) { i.Quantity = -1 }},
		{"inverted pickup window", func(i *CreateBagInput) {
			i.PickupStart = i.PickupEnd.Add(time.Hour)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput(estID)
			tc.mutate(&input)
			_, err := svc.CreateBag(context.Background(), input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("code = %s", pkgerrors.As(err).Code())
			}
		})
	}
}

func TestUpdateBagRejectsForeignBag(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	owner := uuid.New()
	bag := &models.Bag{ID: uuid.New(), EstablishmentID: owner, OriginalPriceCents: 3000, DiscountedPriceCents: 1200, IsActive: true}
	repo.bags[bag.ID] = bag

	newTitle := "Renomeada"
	err := svc.UpdateBag(context.Background(), UpdateBagInput{
		BagID:           bag.ID,
		EstablishmentID: uuid.New(),
		Title:           &newTitle,
	})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("code = %s", pkgerrors.As(err).Code())
	}
	if _, touched := repo.updates[bag.ID]; touched {
		t.Fatal("foreign bag must not be updated")
	}
}

func TestUpdateBagGuardsDiscountAgainstOriginal(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	estID := uuid.New()
	bag := &models.Bag{ID: uuid.New(), EstablishmentID: estID, OriginalPriceCents: 3000, DiscountedPriceCents: 1200, IsActive: true}
	repo.bags[bag.ID] = bag

	tooHigh := int64(3500)
	err := svc.UpdateBag(context.Background(), UpdateBagInput{
		BagID:                bag.ID,
		EstablishmentID:      estID,
		DiscountedPriceCents: &tooHigh,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Lowering original below the current discount is equally invalid.
	lowOriginal := int64(1000)
	err = svc.UpdateBag(context.Background(), UpdateBagInput{
		BagID:              bag.ID,
		EstablishmentID:    estID,
		OriginalPriceCents: &lowOriginal,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Both prices moving together are checked against each other.
	newOriginal := int64(2000)
	newDiscount := int64(1800)
	err = svc.UpdateBag(context.Background(), UpdateBagInput{
		BagID:                bag.ID,
		EstablishmentID:      estID,
		OriginalPriceCents:   &newOriginal,
		DiscountedPriceCents: &newDiscount,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	updates := repo.updates[bag.ID]
	if updates["original_price_cents"] != newOriginal || updates["discounted_price_cents"] != newDiscount {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestSetOpenTogglesEstablishment(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	estID := uuid.New()
	if err := svc.SetOpen(context.Background(), estID, false); err != nil {
		t.Fatalf("set open: %v", err)
	}
	if got := repo.updates[estID]["is_open"]; got != false {
		t.Fatalf("is_open update = %v", got)
	}
}
