package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagination"
)

type stubOrderRepo struct {
	pending   []models.Order
	done      []models.Order
	order     *models.Order
	collected map[uuid.UUID]bool
	completed map[uuid.UUID]bool
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		collected: map[uuid.UUID]bool{},
		completed: map[uuid.UUID]bool{},
	}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubOrderRepo) CreateOrders(ctx context.Context, rows []models.Order) error {
	return nil
}
func (s *stubOrderRepo) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	return intent, nil
}
func (s *stubOrderRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}
func (s *stubOrderRepo) FindPaymentIntent(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderRepo) FindOrdersByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return &OrderList{}, nil
}
func (s *stubOrderRepo) ListByEstablishmentAndStatus(ctx context.Context, establishmentID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error) {
	for _, status := range statuses {
		if status == enums.OrderStatusPending {
			return s.pending, nil
		}
	}
	return s.done, nil
}
func (s *stubOrderRepo) FindExpirableIntents(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error) {
	return nil, nil
}
func (s *stubOrderRepo) UpdatePaymentIntent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}
func (s *stubOrderRepo) CollectOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	if s.collected[orderID] {
		return false, nil
	}
	s.collected[orderID] = true
	return true, nil
}
func (s *stubOrderRepo) CompleteOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	if s.completed[orderID] {
		return false, nil
	}
	s.completed[orderID] = true
	return true, nil
}
func (s *stubOrderRepo) ExpireOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	return false, nil
}
func (s *stubOrderRepo) MarkIntentPaid(ctx context.Context, intentID uuid.UUID, at time.Time) (bool, error) {
	return false, nil
}
func (s *stubOrderRepo) MarkIntentExpired(ctx context.Context, intentID uuid.UUID) (bool, error) {
	return false, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newOrdersService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTx{}, &stubOutbox{}, DefaultVoucherLength)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRedeemCollectsMatchingOrder(t *testing.T) {
	repo := newStubOrderRepo()
	estID := uuid.New()
	target := models.Order{
		ID:              uuid.MustParse("3f2a0000-0000-4000-8000-000000000001"),
		EstablishmentID: estID,
		UserID:          uuid.New(),
		Status:          enums.OrderStatusPending,
	}
	repo.pending = []models.Order{target}

	ob := &stubOutbox{}
	svc, err := NewService(repo, stubTx{}, ob, DefaultVoucherLength)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order, err := svc.Redeem(context.Background(), RedeemInput{
		EstablishmentID: estID,
		Code:            "#rs-3f2a",
		ActorUserID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if order.Status != enums.OrderStatusCollected {
		t.Fatalf("status = %s, want collected", order.Status)
	}
	if !order.MerchantConfirmed {
		t.Fatal("merchant confirmation not set")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderCollected {
		t.Fatalf("events = %+v, want one order_collected", ob.events)
	}
}

func TestRedeemSecondAttemptAlreadyRedeemed(t *testing.T) {
	repo := newStubOrderRepo()
	estID := uuid.New()
	target := models.Order{
		ID:              uuid.MustParse("3f2a0000-0000-4000-8000-000000000001"),
		EstablishmentID: estID,
		Status:          enums.OrderStatusPending,
	}
	repo.pending = []models.Order{target}

	svc := newOrdersService(t, repo)
	input := RedeemInput{EstablishmentID: estID, Code: "3F2A", ActorUserID: uuid.New()}

	if _, err := svc.Redeem(context.Background(), input); err != nil {
		t.Fatalf("first redeem: %v", err)
	}

	// Same code again: the conditional update loses.
	_, err := svc.Redeem(context.Background(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeAlreadyRedeemed {
		t.Fatalf("expected AlreadyRedeemed, got %v", err)
	}
}

func TestRedeemOldVoucherReportsAlreadyRedeemed(t *testing.T) {
	repo := newStubOrderRepo()
	estID := uuid.New()
	// No pending orders left; the code belongs to a collected one.
	repo.done = []models.Order{{
		ID:              uuid.MustParse("3f2a0000-0000-4000-8000-000000000001"),
		EstablishmentID: estID,
		Status:          enums.OrderStatusCollected,
	}}

	svc := newOrdersService(t, repo)
	_, err := svc.Redeem(context.Background(), RedeemInput{
		EstablishmentID: estID,
		Code:            "3F2A",
		ActorUserID:     uuid.New(),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeAlreadyRedeemed {
		t.Fatalf("expected AlreadyRedeemed for stale voucher, got %v", err)
	}
}

func TestRedeemAmbiguousCodeFailsClosed(t *testing.T) {
	repo := newStubOrderRepo()
	estID := uuid.New()
	repo.pending = []models.Order{
		{ID: uuid.MustParse("3f2a0000-0000-4000-8000-000000000001"), EstablishmentID: estID},
		{ID: uuid.MustParse("3f2abbbb-0000-4000-8000-000000000002"), EstablishmentID: estID},
	}

	svc := newOrdersService(t, repo)
	_, err := svc.Redeem(context.Background(), RedeemInput{
		EstablishmentID: estID,
		Code:            "3F2A",
		ActorUserID:     uuid.New(),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeAmbiguousVoucher {
		t.Fatalf("expected AmbiguousVoucher, got %v", err)
	}
	if len(repo.collected) != 0 {
		t.Fatal("ambiguous redeem must not collect anything")
	}
}

func TestConfirmPickupRequiresCollectedState(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	repo.order = &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.OrderStatusPending,
	}

	svc := newOrdersService(t, repo)
	_, err := svc.ConfirmPickup(context.Background(), ConfirmPickupInput{
		OrderID:     repo.order.ID,
		ActorUserID: userID,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected Conflict for pending order, got %v", err)
	}
}

func TestConfirmPickupCompletesCollectedOrder(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	repo.order = &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.OrderStatusCollected,
	}

	ob := &stubOutbox{}
	svc, err := NewService(repo, stubTx{}, ob, DefaultVoucherLength)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order, err := svc.ConfirmPickup(context.Background(), ConfirmPickupInput{
		OrderID:     repo.order.ID,
		ActorUserID: userID,
	})
	if err != nil {
		t.Fatalf("confirm pickup: %v", err)
	}
	if order.Status != enums.OrderStatusCompleted || !order.CustomerConfirmed {
		t.Fatalf("order = %+v, want completed and customer confirmed", order)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderCompleted {
		t.Fatalf("events = %+v, want one order_completed", ob.events)
	}
}

func TestConfirmPickupRejectsForeignOrder(t *testing.T) {
	repo := newStubOrderRepo()
	repo.order = &models.Order{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: enums.OrderStatusCollected,
	}

	svc := newOrdersService(t, repo)
	_, err := svc.ConfirmPickup(context.Background(), ConfirmPickupInput{
		OrderID:     repo.order.ID,
		ActorUserID: uuid.New(),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}
