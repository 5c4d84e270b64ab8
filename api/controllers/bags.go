package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/api/validators"
	boostsvc "github.com/resgatesabor/resgatesabor-backend/internal/boosts"
	catalogsvc "github.com/resgatesabor/resgatesabor-backend/internal/catalog"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

type createBagRequest struct {
	Title                string    `json:"title" validate:"required"`
	OriginalPriceCents   int64     `json:"original_price_cents" validate:"required,gt=0"`
	DiscountedPriceCents int64     `json:"discounted_price_cents" validate:"required,gt=0"`
	Quantity             int       `json:"quantity" validate:"min=0"`
	PickupStart          time.Time `json:"pickup_start" validate:"required"`
	PickupEnd            time.Time `json:"pickup_end" validate:"required"`
	DietaryTags          []string  `json:"dietary_tags"`
}

// CreateBag publishes a new surprise bag for the merchant's establishment.
func CreateBag(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bag, err := svc.CreateBag(r.Context(), catalogsvc.CreateBagInput{
			EstablishmentID:      establishmentID,
			Title:                payload.Title,
			OriginalPriceCents:   payload.OriginalPriceCents,
			DiscountedPriceCents: payload.DiscountedPriceCents,
			Quantity:             payload.Quantity,
			PickupStart:          payload.PickupStart,
			PickupEnd:            payload.PickupEnd,
			DietaryTags:          pq.StringArray(payload.DietaryTags),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bag)
	}
}

type updateBagRequest struct {
	Title                *string `json:"title"`
	OriginalPriceCents   *int64  `json:"original_price_cents"`
	DiscountedPriceCents *int64  `json:"discounted_price_cents"`
	IsActive             *bool   `json:"is_active"`
}

// UpdateBag patches the mutable bag fields. Price changes never touch orders
// already created; the order amount is frozen at checkout.
func UpdateBag(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bagID, err := uuid.Parse(chi.URLParam(r, "bagId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag id"))
			return
		}

		var payload updateBagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateBag(r.Context(), catalogsvc.UpdateBagInput{
			BagID:                bagID,
			EstablishmentID:      establishmentID,
			Title:                payload.Title,
			OriginalPriceCents:   payload.OriginalPriceCents,
			DiscountedPriceCents: payload.DiscountedPriceCents,
			IsActive:             payload.IsActive,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// ListBags returns the establishment's active bags.
func ListBags(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bags, err := svc.ListActiveBags(r.Context(), establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bags)
	}
}

type setOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// SetOpen toggles whether the establishment currently accepts orders.
func SetOpen(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetOpen(r.Context(), establishmentID, *payload.Open); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"open": *payload.Open})
	}
}

// BoostBag activates paid urgency promotion for one of the merchant's bags.
func BoostBag(svc boostsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bagID, err := uuid.Parse(chi.URLParam(r, "bagId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag id"))
			return
		}

		usage, err := svc.Activate(r.Context(), boostsvc.ActivateInput{
			EstablishmentID: establishmentID,
			BagID:           bagID,
			ActorUserID:     userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, usage)
	}
}

// ListBoosts returns the establishment's boost history, fees frozen at
// activation time.
func ListBoosts(svc boostsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		usages, err := svc.ListUsage(r.Context(), establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, usages)
	}
}
