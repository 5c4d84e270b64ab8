package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/internal/cards"
	"github.com/resgatesabor/resgatesabor-backend/internal/catalog"
	"github.com/resgatesabor/resgatesabor-backend/internal/orders"
	"github.com/resgatesabor/resgatesabor-backend/pkg/config"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagination"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagseguro"
)

var errStubNotImplemented = errors.New("not implemented in stub")

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubCatalogRepo struct {
	bags           map[uuid.UUID]*models.Bag
	establishments map[uuid.UUID]*models.Establishment
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		bags:           make(map[uuid.UUID]*models.Bag),
		establishments: make(map[uuid.UUID]*models.Establishment),
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	est, ok := s.establishments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return est, nil
}

func (s *stubCatalogRepo) FindEstablishmentByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Establishment, error) {
	return nil, errStubNotImplemented
}

func (s *stubCatalogRepo) FindBag(ctx context.Context, id uuid.UUID) (*models.Bag, error) {
	bag, ok := s.bags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return bag, nil
}

func (s *stubCatalogRepo) FindBags(ctx context.Context, ids []uuid.UUID) ([]models.Bag, error) {
	var out []models.Bag
	for _, id := range ids {
		if bag, ok := s.bags[id]; ok {
			out = append(out, *bag)
		}
	}
	return out, nil
}

func (s *stubCatalogRepo) ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error) {
	return nil, errStubNotImplemented
}

func (s *stubCatalogRepo) CreateBag(ctx context.Context, bag *models.Bag) (*models.Bag, error) {
	return nil, errStubNotImplemented
}

func (s *stubCatalogRepo) UpdateBag(ctx context.Context, bagID uuid.UUID, updates map[string]any) error {
	return errStubNotImplemented
}

func (s *stubCatalogRepo) UpdateEstablishment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return errStubNotImplemented
}

func (s *stubCatalogRepo) DecrementQuantity(ctx context.Context, bagID uuid.UUID, qty int) (bool, error) {
	bag, ok := s.bags[bagID]
	if !ok || bag.Quantity < qty {
		return false, nil
	}
	bag.Quantity -= qty
	return true, nil
}

func (s *stubCatalogRepo) RestoreQuantity(ctx context.Context, bagID uuid.UUID, qty int) error {
	if bag, ok := s.bags[bagID]; ok {
		bag.Quantity += qty
	}
	return nil
}

type stubIntentRepo struct {
	intents map[uuid.UUID]*models.PaymentIntent
	rows    []models.Order
}

func newStubIntentRepo() *stubIntentRepo {
	return &stubIntentRepo{intents: make(map[uuid.UUID]*models.PaymentIntent)}
}

func (s *stubIntentRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubIntentRepo) CreateOrders(ctx context.Context, rows []models.Order) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *stubIntentRepo) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	copied := *intent
	s.intents[intent.ID] = &copied
	return intent, nil
}

func (s *stubIntentRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubIntentRepo) FindPaymentIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	intent, ok := s.intents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return intent, nil
}

func (s *stubIntentRepo) FindOrdersByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, row := range s.rows {
		if row.PaymentIntentID == intentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubIntentRepo) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return nil, errStubNotImplemented
}

func (s *stubIntentRepo) ListByEstablishmentAndStatus(ctx context.Context, establishmentID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error) {
	return nil, nil
}

func (s *stubIntentRepo) FindExpirableIntents(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error) {
	return nil, errStubNotImplemented
}

func (s *stubIntentRepo) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubIntentRepo) CollectOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	return false, errStubNotImplemented
}

func (s *stubIntentRepo) CompleteOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	return false, errStubNotImplemented
}

func (s *stubIntentRepo) ExpireOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	return false, errStubNotImplemented
}

func (s *stubIntentRepo) MarkIntentPaid(ctx context.Context, intentID uuid.UUID, at time.Time) (bool, error) {
	intent, ok := s.intents[intentID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if intent.Status != enums.PaymentStatusAwaitingPayment {
		return false, nil
	}
	intent.Status = enums.PaymentStatusPaid
	intent.PaidAt = &at
	return true, nil
}

func (s *stubIntentRepo) MarkIntentExpired(ctx context.Context, intentID uuid.UUID) (bool, error) {
	return false, errStubNotImplemented
}

type fakeGateway struct {
	params []pagseguro.ChargeCreateParams
	charge *pagseguro.Charge
	fail   error
}

func (f *fakeGateway) CreateCharge(ctx context.Context, params pagseguro.ChargeCreateParams) (*pagseguro.Charge, error) {
	f.params = append(f.params, params)
	if f.fail != nil {
		return nil, f.fail
	}
	if f.charge != nil {
		copied := *f.charge
		copied.ReferenceID = params.ReferenceID.String()
		return &copied, nil
	}
	return &pagseguro.Charge{
		ID:          "ch_" + params.ReferenceID.String()[:8],
		ReferenceID: params.ReferenceID.String(),
		Status:      "WAITING",
		TotalCents:  params.TotalCents,
	}, nil
}

type stubCardStore struct {
	saved []cards.SaveCardInput
}

func (s *stubCardStore) Save(ctx context.Context, tx *gorm.DB, input cards.SaveCardInput) (*models.SavedCard, error) {
	s.saved = append(s.saved, input)
	return &models.SavedCard{ID: uuid.New(), UserID: input.UserID}, nil
}

type checkoutFixture struct {
	catalog *stubCatalogRepo
	orders  *stubIntentRepo
	gateway *fakeGateway
	cards   *stubCardStore
	outbox  *stubOutbox
	svc     Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		catalog: newStubCatalogRepo(),
		orders:  newStubIntentRepo(),
		gateway: &fakeGateway{},
		cards:   &stubCardStore{},
		outbox:  &stubOutbox{},
	}
	svc, err := NewService(
		f.catalog, f.orders, stubTx{}, f.gateway, f.cards, f.outbox,
		config.CheckoutConfig{IntentTTL: 10 * time.Minute},
		config.VoucherConfig{PrefixLength: orders.DefaultVoucherLength},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *checkoutFixture) addBag(establishmentID uuid.UUID, priceCents int64, qty int) uuid.UUID {
	bagID := uuid.New()
	f.catalog.bags[bagID] = &models.Bag{
		ID:                   bagID,
		EstablishmentID:      establishmentID,
		DiscountedPriceCents: priceCents,
		Quantity:             qty,
		PickupEnd:            time.Now().Add(4 * time.Hour),
		IsActive:             true,
	}
	if _, ok := f.catalog.establishments[establishmentID]; !ok {
		f.catalog.establishments[establishmentID] = &models.Establishment{
			ID:               establishmentID,
			PagSeguroAccount: "acct-" + establishmentID.String()[:8],
		}
	}
	return bagID
}

func TestCheckoutSplitSumMatchesChargeTotal(t *testing.T) {
	f := newCheckoutFixture(t)
	padariaID := uuid.New()
	mercadoID := uuid.New()
	padariaBag := f.addBag(padariaID, 1290, 10)
	padariaBag2 := f.addBag(padariaID, 990, 10)
	mercadoBag := f.addBag(mercadoID, 2550, 10)

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items: []ItemSelection{
			{BagID: padariaBag, Quantity: 2},
			{BagID: mercadoBag, Quantity: 1},
			{BagID: padariaBag2, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	wantTotal := int64(2*1290 + 2550 + 3*990)
	if result.TotalCents != wantTotal {
		t.Fatalf("total = %d, want %d", result.TotalCents, wantTotal)
	}
	if len(f.gateway.params) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(f.gateway.params))
	}
	charge := f.gateway.params[0]
	if charge.TotalCents != wantTotal {
		t.Fatalf("charge total = %d, want %d", charge.TotalCents, wantTotal)
	}
	if len(charge.Receivers) != 2 {
		t.Fatalf("receivers = %d, want 2", len(charge.Receivers))
	}
	var receiverSum int64
	for _, r := range charge.Receivers {
		receiverSum += r.AmountCents
	}
	if receiverSum != charge.TotalCents {
		t.Fatalf("receiver sum %d != charge total %d", receiverSum, charge.TotalCents)
	}
	if len(result.Orders) != 3 {
		t.Fatalf("orders = %d, want 3", len(result.Orders))
	}

	if len(f.outbox.events) != 2 {
		t.Fatalf("events = %d, want 2", len(f.outbox.events))
	}
	if f.outbox.events[0].EventType != enums.EventPaymentIntentCreated {
		t.Fatalf("first event = %s", f.outbox.events[0].EventType)
	}
	if f.outbox.events[1].EventType != enums.EventOrderCreated {
		t.Fatalf("second event = %s", f.outbox.events[1].EventType)
	}
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	f := newCheckoutFixture(t)
	estID := uuid.New()
	bagID := f.addBag(estID, 1500, 5)

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items: []ItemSelection{
			{BagID: bagID, Quantity: 1},
			{BagID: bagID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("orders = %d, want 1 merged line", len(result.Orders))
	}
	if result.TotalCents != 4500 {
		t.Fatalf("total = %d, want 4500", result.TotalCents)
	}
	if f.catalog.bags[bagID].Quantity != 2 {
		t.Fatalf("remaining quantity = %d, want 2", f.catalog.bags[bagID].Quantity)
	}
}

func TestCheckoutFreezesOrderAmounts(t *testing.T) {
	f := newCheckoutFixture(t)
	estID := uuid.New()
	bagID := f.addBag(estID, 1000, 5)

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// A later price change must not touch the amount captured at checkout.
	f.catalog.bags[bagID].DiscountedPriceCents = 9999

	stored, err := f.orders.FindOrdersByIntent(context.Background(), result.PaymentIntentID)
	if err != nil {
		t.Fatalf("find orders: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored orders = %d, want 1", len(stored))
	}
	if stored[0].AmountCents != 2000 {
		t.Fatalf("amount = %d, want frozen 2000", stored[0].AmountCents)
	}
}

func TestCheckoutUnavailableLineAbortsAll(t *testing.T) {
	f := newCheckoutFixture(t)
	estID := uuid.New()
	okBag := f.addBag(estID, 1000, 5)
	emptyBag := f.addBag(estID, 800, 0)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items: []ItemSelection{
			{BagID: okBag, Quantity: 1},
			{BagID: emptyBag, Quantity: 1},
		},
	})
	if err == nil {
		t.Fatal("expected unavailable error")
	}
	typed := pkgerrors.As(err)
	if typed.Code() != pkgerrors.CodeUnavailable {
		t.Fatalf("code = %s, want %s", typed.Code(), pkgerrors.CodeUnavailable)
	}
	if len(f.orders.intents) != 0 {
		t.Fatalf("intents created = %d, want 0", len(f.orders.intents))
	}
	if len(f.gateway.params) != 0 {
		t.Fatalf("gateway calls = %d, want 0", len(f.gateway.params))
	}
}

func TestCheckoutLastUnitHasOneWinner(t *testing.T) {
	f := newCheckoutFixture(t)
	estID := uuid.New()
	bagID := f.addBag(estID, 1200, 1)

	first, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if first.TotalCents != 1200 {
		t.Fatalf("first total = %d", first.TotalCents)
	}

	_, err = f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("second checkout should lose the last unit")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnavailable {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeUnavailable)
	}
	if f.catalog.bags[bagID].Quantity != 0 {
		t.Fatalf("remaining quantity = %d, want 0", f.catalog.bags[bagID].Quantity)
	}
}

func TestCheckoutPixSetsExpiryAndQR(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.charge = &pagseguro.Charge{
		ID:     "ch_pix",
		Status: "WAITING",
		QRText: "00020126pix-copy-paste",
	}
	estID := uuid.New()
	bagID := f.addBag(estID, 2000, 3)

	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f.svc.(*service).now = func() time.Time { return fixed }

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.ExpiresAt == nil || !result.ExpiresAt.Equal(fixed.Add(10*time.Minute)) {
		t.Fatalf("expires_at = %v, want %v", result.ExpiresAt, fixed.Add(10*time.Minute))
	}
	if result.QRText != "00020126pix-copy-paste" {
		t.Fatalf("qr_text = %q", result.QRText)
	}
	if result.QRImageURL == "" {
		t.Fatal("qr_image_url should fall back to a locally rendered image")
	}
	if !f.gateway.params[0].ExpiresAt.Equal(fixed.Add(10 * time.Minute)) {
		t.Fatalf("gateway expires_at = %v", f.gateway.params[0].ExpiresAt)
	}
}

func TestCheckoutCardRequiresToken(t *testing.T) {
	f := newCheckoutFixture(t)
	bagID := f.addBag(uuid.New(), 1000, 5)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodCard,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeValidation)
	}
}

func TestCheckoutSavesCardWhenAsked(t *testing.T) {
	f := newCheckoutFixture(t)
	bagID := f.addBag(uuid.New(), 1000, 5)
	userID := uuid.New()

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:         userID,
		Method:         enums.PaymentMethodCard,
		CardToken:      "tok_abc",
		SaveCard:       true,
		CardBrand:      "visa",
		CardLast4:      "4242",
		CardHolderName: "Ana Souza",
		Items:          []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(f.cards.saved) != 1 {
		t.Fatalf("saved cards = %d, want 1", len(f.cards.saved))
	}
	if f.cards.saved[0].UserID != userID || f.cards.saved[0].Last4 != "4242" {
		t.Fatalf("saved card = %+v", f.cards.saved[0])
	}
}

func TestCheckoutGatewayFailureSurfacesPaymentError(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.fail = errors.New("gateway: 502")
	bagID := f.addBag(uuid.New(), 1000, 5)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodePaymentIntentFailed {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodePaymentIntentFailed)
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("events = %d, want 0 after gateway failure", len(f.outbox.events))
	}
}

func TestMarkPaidEmitsEventOnce(t *testing.T) {
	f := newCheckoutFixture(t)
	bagID := f.addBag(uuid.New(), 1000, 5)

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: uuid.New(),
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	f.outbox.events = nil

	paidAt := time.Now()
	if err := f.svc.MarkPaid(context.Background(), result.PaymentIntentID, paidAt); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := f.svc.MarkPaid(context.Background(), result.PaymentIntentID, paidAt.Add(time.Second)); err != nil {
		t.Fatalf("replayed mark paid: %v", err)
	}

	var paidEvents int
	for _, ev := range f.outbox.events {
		if ev.EventType == enums.EventPaymentIntentPaid {
			paidEvents++
		}
	}
	if paidEvents != 1 {
		t.Fatalf("paid events = %d, want exactly 1", paidEvents)
	}
}

func TestGetIntentRejectsForeignUser(t *testing.T) {
	f := newCheckoutFixture(t)
	bagID := f.addBag(uuid.New(), 1000, 5)
	owner := uuid.New()

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID: owner,
		Method: enums.PaymentMethodPix,
		Items:  []ItemSelection{{BagID: bagID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := f.svc.GetIntent(context.Background(), result.PaymentIntentID, uuid.New()); err == nil {
		t.Fatal("expected forbidden error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeForbidden)
	}

	got, err := f.svc.GetIntent(context.Background(), result.PaymentIntentID, owner)
	if err != nil {
		t.Fatalf("owner get intent: %v", err)
	}
	if got.PaymentIntentID != result.PaymentIntentID || len(got.Orders) != 1 {
		t.Fatalf("intent view = %+v", got)
	}
}
