package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

// CreateBagInput carries the fields a merchant supplies for a new bag.
type CreateBagInput struct {
	EstablishmentID      uuid.UUID
	Title                string
	OriginalPriceCents   int64
	DiscountedPriceCents int64
	Quantity             int
	PickupStart          time.Time
	PickupEnd            time.Time
	DietaryTags          pq.StringArray
}

func (i CreateBagInput) validate() error {
	if i.EstablishmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	if i.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if i.OriginalPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "original price must be positive")
	}
	if i.DiscountedPriceCents <= 0 || i.DiscountedPriceCents > i.OriginalPriceCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be positive and not exceed original price")
	}
	if i.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !i.PickupEnd.After(i.PickupStart) {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup window must end after it starts")
	}
	return nil
}

// UpdateBagInput lists the mutable bag fields; nil means unchanged.
type UpdateBagInput struct {
	BagID                uuid.UUID
	EstablishmentID      uuid.UUID
	Title                *string
	OriginalPriceCents   *int64
	DiscountedPriceCents *int64
	IsActive             *bool
}
