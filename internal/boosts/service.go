package boosts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resgatesabor/resgatesabor-backend/internal/catalog"
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

// ActivateInput starts a boost for one of the merchant's bags.
type ActivateInput struct {
	EstablishmentID uuid.UUID
	BagID           uuid.UUID
	ActorUserID     uuid.UUID
}

// Service activates boosts and reads back usage history.
type Service interface {
	Activate(ctx context.Context, input ActivateInput) (*models.BoostUsage, error)
	ListUsage(ctx context.Context, establishmentID uuid.UUID) ([]models.BoostUsage, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
}

// NewService builds the boost activation service.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("boost repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx, outbox: outboxSvc}, nil
}

// Activate charges the establishment's current boost fee and marks the bag
// urgent. The fee is frozen on the usage row; raising boost_fee later must
// not change what was already charged.
func (s *service) Activate(ctx context.Context, input ActivateInput) (*models.BoostUsage, error) {
	if input.EstablishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	if input.BagID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag id is required")
	}

	establishment, err := s.catalog.FindEstablishment(ctx, input.EstablishmentID)
	if err != nil {
		return nil, err
	}
	bag, err := s.catalog.FindBag(ctx, input.BagID)
	if err != nil {
		return nil, err
	}
	if bag.EstablishmentID != input.EstablishmentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bag belongs to another establishment")
	}
	if establishment.BoostFeeCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "boost fee is not configured for this establishment")
	}

	usage := &models.BoostUsage{
		ID:              uuid.New(),
		EstablishmentID: input.EstablishmentID,
		BagID:           input.BagID,
		FeeAtTimeCents:  establishment.BoostFeeCents,
		CreatedAt:       time.Now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		if err := repo.Create(ctx, usage); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record boost usage")
		}
		if err := catalogRepo.UpdateBag(ctx, input.BagID, map[string]any{"is_urgent": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag bag urgent")
		}
		if err := catalogRepo.UpdateEstablishment(ctx, input.EstablishmentID, map[string]any{"is_promoted": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote establishment")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBoostActivated,
			AggregateType: enums.AggregateBoostUsage,
			AggregateID:   usage.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:          input.ActorUserID,
				EstablishmentID: &establishment.ID,
				Role:            "merchant",
			},
			Data: payloads.BoostActivatedEvent{
				BoostUsageID:    usage.ID,
				EstablishmentID: input.EstablishmentID,
				BagID:           input.BagID,
				FeeAtTimeCents:  usage.FeeAtTimeCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

func (s *service) ListUsage(ctx context.Context, establishmentID uuid.UUID) ([]models.BoostUsage, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	return s.repo.ListByEstablishment(ctx, establishmentID)
}
