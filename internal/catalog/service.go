package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

// Service exposes merchant-facing catalog management.
type Service interface {
	CreateBag(ctx context.Context, input CreateBagInput) (*models.Bag, error)
	UpdateBag(ctx context.Context, input UpdateBagInput) error
	SetOpen(ctx context.Context, establishmentID uuid.UUID, open bool) error
	ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateBag(ctx context.Context, input CreateBagInput) (*models.Bag, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	bag := &models.Bag{
		EstablishmentID:      input.EstablishmentID,
		Title:                input.Title,
		OriginalPriceCents:   input.OriginalPriceCents,
		DiscountedPriceCents: input.DiscountedPriceCents,
		Quantity:             input.Quantity,
		PickupStart:          input.PickupStart,
		PickupEnd:            input.PickupEnd,
		IsActive:             true,
		DietaryTags:          input.DietaryTags,
	}
	created, err := s.repo.CreateBag(ctx, bag)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bag")
	}
	return created, nil
}

func (s *service) UpdateBag(ctx context.Context, input UpdateBagInput) error {
	if input.BagID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bag id required")
	}
	bag, err := s.repo.FindBag(ctx, input.BagID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "bag not found")
	}
	if bag.EstablishmentID != input.EstablishmentID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "bag does not belong to establishment")
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.DiscountedPriceCents != nil {
		original := bag.OriginalPriceCents
		if input.OriginalPriceCents != nil {
			original = *input.OriginalPriceCents
			updates["original_price_cents"] = original
		}
		if *input.DiscountedPriceCents > original {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price cannot exceed original price")
		}
		updates["discounted_price_cents"] = *input.DiscountedPriceCents
	} else if input.OriginalPriceCents != nil {
		if bag.DiscountedPriceCents > *input.OriginalPriceCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted price cannot exceed original price")
		}
		updates["original_price_cents"] = *input.OriginalPriceCents
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateBag(ctx, bag.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bag")
	}
	return nil
}

func (s *service) SetOpen(ctx context.Context, establishmentID uuid.UUID, open bool) error {
	if establishmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	if err := s.repo.UpdateEstablishment(ctx, establishmentID, map[string]any{"is_open": open}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update establishment")
	}
	return nil
}

func (s *service) ListActiveBags(ctx context.Context, establishmentID uuid.UUID) ([]models.Bag, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	bags, err := s.repo.ListActiveBags(ctx, establishmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bags")
	}
	return bags, nil
}
