package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/api/validators"
	internalorders "github.com/resgatesabor/resgatesabor-backend/internal/orders"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/pagination"
)

type redeemVoucherRequest struct {
	Code string `json:"code" validate:"required"`
}

// RedeemVoucher lets the merchant collect an order by typing its code.
func RedeemVoucher(svc internalorders.Service, voucherLength int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		var payload redeemVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Redeem(r.Context(), internalorders.RedeemInput{
			EstablishmentID: establishmentID,
			Code:            payload.Code,
			ActorUserID:     userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.NewOrderView(*order, voucherLength))
	}
}

// ConfirmPickup lets the customer confirm they received the bag.
func ConfirmPickup(svc internalorders.Service, voucherLength int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.ConfirmPickup(r.Context(), internalorders.ConfirmPickupInput{
			OrderID:     orderID,
			ActorUserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, internalorders.NewOrderView(*order, voucherLength))
	}
}

type orderListResponse struct {
	Orders     []internalorders.OrderView `json:"orders"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// ListOrders returns the customer's orders, newest first, cursor paginated.
func ListOrders(svc internalorders.Service, voucherLength int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListUserOrders(r.Context(), userID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := orderListResponse{
			Orders:     make([]internalorders.OrderView, 0, len(list.Orders)),
			NextCursor: list.NextCursor,
		}
		for _, order := range list.Orders {
			out.Orders = append(out.Orders, internalorders.NewOrderView(order, voucherLength))
		}

		responses.WriteSuccess(w, out)
	}
}

// MerchantPendingOrders lists the establishment's redeemable orders.
func MerchantPendingOrders(svc internalorders.Service, voucherLength int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		establishmentID, err := parseEstablishmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMerchantPending(r.Context(), establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]internalorders.OrderView, 0, len(rows))
		for _, order := range rows {
			views = append(views, internalorders.NewOrderView(order, voucherLength))
		}

		responses.WriteSuccess(w, orderListResponse{Orders: views})
	}
}
