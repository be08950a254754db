package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/api/middleware"
	"github.com/rockettradeline/tradeline-backend/api/responses"
	"github.com/rockettradeline/tradeline-backend/api/validators"
	cartsvc "github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

func callerAndCartID(r *http.Request) (auth.Identity, uuid.UUID, error) {
	caller, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		return auth.Identity{}, uuid.Nil, err
	}
	cartID, err := validators.ParsePathUUID(chi.URLParam(r, "cartID"), "cartID")
	if err != nil {
		return auth.Identity{}, uuid.Nil, err
	}
	return caller, cartID, nil
}

// CartCurrent returns the caller's working cart, creating one when none
// exists.
func CartCurrent(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.GetOrCreate(r.Context(), caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartGet returns one cart by id.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Get(r.Context(), caller, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartHistory lists the caller's past carts, newest first.
func CartHistory(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var statuses []enums.CartStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseCartStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown cart status"))
				return
			}
			statuses = append(statuses, status)
		}
		page, err := svc.History(r.Context(), caller, statuses, p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type addItemRequest struct {
	TradelineID uuid.UUID `json:"tradeline_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
}

// CartAddItem adds or tops up a tradeline line item.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.AddItem(r.Context(), caller, cartID, payload.TradelineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// CartSetItemQuantity sets a line item's quantity; zero removes it.
func CartSetItemQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradelineID, err := validators.ParsePathUUID(chi.URLParam(r, "tradelineID"), "tradelineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.SetItemQuantity(r.Context(), caller, cartID, tradelineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartRemoveItem drops a line item. Removing an absent item succeeds.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tradelineID, err := validators.ParsePathUUID(chi.URLParam(r, "tradelineID"), "tradelineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.RemoveItem(r.Context(), caller, cartID, tradelineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartClear removes every item and resets the discount.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Clear(r.Context(), caller, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

type applyDiscountRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=amount percentage"`
	Value string `json:"value" validate:"required"`
}

// CartApplyDiscount applies an amount or percentage discount.
func CartApplyDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseDiscountKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown discount kind"))
			return
		}
		value, err := decimal.NewFromString(payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "discount value must be a decimal"))
			return
		}
		cart, err := svc.ApplyDiscount(r.Context(), caller, cartID, kind, value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

type setPaymentMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

// CartSetPaymentMethod records the buyer's intended payment method.
func CartSetPaymentMethod(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method"))
			return
		}
		cart, err := svc.SetPaymentMethod(r.Context(), caller, cartID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

type extendExpiryRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// CartExtendExpiry pushes the cart's expiry out by the requested days.
func CartExtendExpiry(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload extendExpiryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.ExtendExpiry(r.Context(), caller, cartID, payload.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartCancel abandons a cart.
func CartCancel(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, cartID, err := callerAndCartID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.Cancel(r.Context(), caller, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
