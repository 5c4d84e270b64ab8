package middleware

import (
	"net/http"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

// EstablishmentContext rejects merchant requests whose token carries no
// establishment. Merchant tokens always should; this guards stale ones.
func EstablishmentContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if EstablishmentIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
