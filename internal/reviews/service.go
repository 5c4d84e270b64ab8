package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderLoader interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// SubmitInput is one customer review of a completed order.
type SubmitInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Rating  int
	Comment *string
}

// Service accepts reviews for completed orders.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Review, error)
	ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]models.Review, error)
}

type service struct {
	repo   Repository
	orders orderLoader
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the review service.
func NewService(repo Repository, orders orderLoader, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, orders: orders, tx: tx, outbox: outboxSvc}, nil
}

// Submit records at most one review per order. The unique index on order_id
// settles races between duplicate submissions.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Review, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	order, err := s.orders.FindOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only completed orders can be reviewed")
	}

	review := &models.Review{
		ID:              uuid.New(),
		OrderID:         order.ID,
		EstablishmentID: order.EstablishmentID,
		UserID:          input.UserID,
		Rating:          input.Rating,
		Comment:         input.Comment,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "ux_reviews_order_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order has already been reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewSubmitted,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: "customer"},
			Data: payloads.ReviewSubmittedEvent{
				ReviewID:        review.ID,
				OrderID:         order.ID,
				EstablishmentID: order.EstablishmentID,
				Rating:          input.Rating,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *service) ListByEstablishment(ctx context.Context, establishmentID uuid.UUID) ([]models.Review, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id is required")
	}
	return s.repo.ListByEstablishment(ctx, establishmentID)
}
