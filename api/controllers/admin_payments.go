package controllers

import (
	"net/http"

	"github.com/rockettradeline/tradeline-backend/api/middleware"
	"github.com/rockettradeline/tradeline-backend/api/responses"
	"github.com/rockettradeline/tradeline-backend/api/validators"
	"github.com/rockettradeline/tradeline-backend/internal/payments"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

type approveManualRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// AdminApproveManual decides a manual payment submission. Rejections
// require a reason; a second decision conflicts.
func AdminApproveManual(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload approveManualRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Approve && payload.Reason == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "rejection requires a reason"))
			return
		}

		req, err := svc.ApproveManual(r.Context(), caller, requestID, payload.Approve, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

// AdminSettleApproved runs fulfillment for an approved manual payment.
func AdminSettleApproved(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.SettleApproved(r.Context(), caller, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

type verifyPaymentRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

// AdminVerifyPayment confirms a peer-to-peer transfer was received and
// settles the request. Verifying twice is a no-op.
func AdminVerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Verify(r.Context(), caller, requestID, payload.Payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

// AdminPaymentList lists payment requests across all customers.
func AdminPaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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
		filter, err := paymentListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("customer_id"); raw != "" {
			customerID, err := validators.ParsePathUUID(raw, "customer_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.CustomerID = &customerID
		}
		page, err := svc.List(r.Context(), caller, filter, p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
