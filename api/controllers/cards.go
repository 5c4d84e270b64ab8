package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	cardsvc "github.com/resgatesabor/resgatesabor-backend/internal/cards"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

// ListCards returns the customer's saved card references. Only masked data
// ever leaves the database.
func ListCards(svc cardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cards, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cards)
	}
}

// RemoveCard deletes one saved card reference.
func RemoveCard(svc cardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cards service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cardID, err := uuid.Parse(chi.URLParam(r, "cardId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid card id"))
			return
		}

		if err := svc.Remove(r.Context(), cardID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
