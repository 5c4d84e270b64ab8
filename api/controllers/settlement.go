package controllers

import (
	"net/http"
	"time"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/api/validators"
	settlementsvc "github.com/resgatesabor/resgatesabor-backend/internal/settlement"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

// Default settlement window is the trailing seven days.
const defaultSettlementWindow = 7 * 24 * time.Hour

func settlementWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, err := validators.ParseQueryTime(r, "from", now.Add(-defaultSettlementWindow))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := validators.ParseQueryTime(r, "to", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// MerchantSettlement returns the establishment's own payable line.
func MerchantSettlement(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, to, err := settlementWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.MerchantReport(r.Context(), establishmentID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// AdminSettlement returns the full platform report for the window.
func AdminSettlement(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		from, to, err := settlementWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Report(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
