package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/api/middleware"
	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/api/validators"
	checkoutsvc "github.com/resgatesabor/resgatesabor-backend/internal/checkout"
	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

type checkoutRequest struct {
	Items     []checkoutItemPayload `json:"items" validate:"required,min=1,dive"`
	Method    string                `json:"method" validate:"required"`
	CardToken string                `json:"card_token"`
	SavedCard string                `json:"saved_card_id"`

	SaveCard       bool   `json:"save_card"`
	CardBrand      string `json:"card_brand"`
	CardLast4      string `json:"card_last4"`
	CardHolderName string `json:"card_holder_name"`
}

type checkoutItemPayload struct {
	BagID    uuid.UUID `json:"bag_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

func (p checkoutRequest) toInput(userID uuid.UUID) (checkoutsvc.CheckoutInput, error) {
	method, err := enums.ParsePaymentMethod(p.Method)
	if err != nil {
		return checkoutsvc.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	items := make([]checkoutsvc.ItemSelection, len(p.Items))
	for i, item := range p.Items {
		items[i] = checkoutsvc.ItemSelection{BagID: item.BagID, Quantity: item.Quantity}
	}

	return checkoutsvc.CheckoutInput{
		UserID:         userID,
		Items:          items,
		Method:         method,
		CardToken:      p.CardToken,
		SavedCardID:    p.SavedCard,
		SaveCard:       p.SaveCard,
		CardBrand:      p.CardBrand,
		CardLast4:      p.CardLast4,
		CardHolderName: p.CardHolderName,
	}, nil
}

// Checkout creates a payment intent plus its child orders.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutIntent returns a previously created intent so the client can poll
// payment status.
func CheckoutIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intent id"))
			return
		}

		result, err := svc.GetIntent(r.Context(), intentID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

func parseEstablishmentID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.EstablishmentIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	establishmentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid establishment id")
	}
	return establishmentID, nil
}
