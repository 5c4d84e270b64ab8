package controllers

import (
	"net/http"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/api/validators"
	cartsvc "github.com/resgatesabor/resgatesabor-backend/internal/cart"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

// CartQuote aggregates the customer's selections into per-merchant groups.
func CartQuote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartsvc.QuoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
