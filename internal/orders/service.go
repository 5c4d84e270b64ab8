package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox/payloads"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the order lifecycle: voucher redemption at the counter and
// the customer's pickup confirmation.
type Service interface {
	Redeem(ctx context.Context, input RedeemInput) (*models.Order, error)
	ConfirmPickup(ctx context.Context, input ConfirmPickupInput) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListMerchantPending(ctx context.Context, establishmentID uuid.UUID) ([]models.Order, error)
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	voucherLength int
	now           func() time.Time
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, voucherLength int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if voucherLength <= 0 {
		voucherLength = DefaultVoucherLength
	}
	return &service{
		repo:          repo,
		tx:            tx,
		outbox:        outboxSvc,
		voucherLength: voucherLength,
		now:           time.Now,
	}, nil
}

// Redeem resolves a typed voucher against the merchant's pending orders and
// moves the winner to collected. Two clerks typing the same code race on the
// conditional update; exactly one wins, the other gets AlreadyRedeemed.
func (s *service) Redeem(ctx context.Context, input RedeemInput) (*models.Order, error) {
	if input.EstablishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	code, err := NormalizeVoucher(input.Code)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.ListByEstablishmentAndStatus(ctx, input.EstablishmentID, []enums.OrderStatus{enums.OrderStatusPending})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending orders")
	}

	matched, err := MatchVoucher(pending, code)
	if err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeInvalidVoucher {
			return nil, s.classifyMiss(ctx, input.EstablishmentID, code, err)
		}
		return nil, err
	}

	collectedAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err := repo.CollectOrder(ctx, matched.ID, collectedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collect order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeAlreadyRedeemed, "voucher has already been redeemed")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCollected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   matched.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.EstablishmentID),
			Data: payloads.OrderCollectedEvent{
				OrderID:         matched.ID,
				EstablishmentID: matched.EstablishmentID,
				UserID:          matched.UserID,
				Voucher:         FormatVoucher(matched.ID, s.voucherLength),
				CollectedAt:     collectedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	matched.Status = enums.OrderStatusCollected
	matched.MerchantConfirmed = true
	matched.CollectedAt = &collectedAt
	return matched, nil
}

// classifyMiss distinguishes a code that was never valid from one that was
// redeemed earlier, so the clerk gets AlreadyRedeemed instead of a generic
// miss when the customer shows an old voucher.
func (s *service) classifyMiss(ctx context.Context, establishmentID uuid.UUID, code string, miss error) error {
	done, err := s.repo.ListByEstablishmentAndStatus(ctx, establishmentID, []enums.OrderStatus{
		enums.OrderStatusCollected,
		enums.OrderStatusCompleted,
	})
	if err != nil {
		return miss
	}
	for i := range done {
		if VoucherPrefix(done[i].ID, len(code)) == code {
			return pkgerrors.New(pkgerrors.CodeAlreadyRedeemed, "voucher has already been redeemed")
		}
	}
	return miss
}

func (s *service) ConfirmPickup(ctx context.Context, input ConfirmPickupInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.ActorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	switch order.Status {
	case enums.OrderStatusCollected:
		// fallthrough to the transition
	case enums.OrderStatusPending:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order has not been collected yet")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order cannot be confirmed in its current state")
	}

	completedAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err := repo.CompleteOrder(ctx, order.ID, completedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "order cannot be confirmed in its current state")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: "customer"},
			Data: payloads.OrderCompletedEvent{
				OrderID:         order.ID,
				EstablishmentID: order.EstablishmentID,
				UserID:          order.UserID,
				AmountCents:     order.AmountCents,
				CompletedAt:     completedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusCompleted
	order.CustomerConfirmed = true
	order.CompletedAt = &completedAt
	return order, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListUserOrders(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListMerchantPending(ctx context.Context, establishmentID uuid.UUID) ([]models.Order, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	orders, err := s.repo.ListByEstablishmentAndStatus(ctx, establishmentID, []enums.OrderStatus{enums.OrderStatusPending})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}
	return orders, nil
}

func buildActor(userID, establishmentID uuid.UUID) *outbox.ActorRef {
	est := establishmentID
	return &outbox.ActorRef{
		UserID:          userID,
		EstablishmentID: &est,
		Role:            "merchant",
	}
}
