package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rockettradeline/tradeline-backend/api/middleware"
	"github.com/rockettradeline/tradeline-backend/api/responses"
	"github.com/rockettradeline/tradeline-backend/api/validators"
	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

func callerAndRequestID(r *http.Request) (auth.Identity, uuid.UUID, error) {
	caller, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		return auth.Identity{}, uuid.Nil, err
	}
	requestID, err := validators.ParsePathUUID(chi.URLParam(r, "requestID"), "requestID")
	if err != nil {
		return auth.Identity{}, uuid.Nil, err
	}
	return caller, requestID, nil
}

type checkoutRequest struct {
	Method          string `json:"method" validate:"required"`
	CustomerContact string `json:"customer_contact,omitempty" validate:"omitempty,email"`
}

// Checkout opens a payment request for a cart and returns the payload
// the customer needs to pay: a gateway redirect or P2P routing
// instructions.
func Checkout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID, err := validators.ParsePathUUID(chi.URLParam(r, "cartID"), "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
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

		result, err := svc.CreatePaymentRequest(r.Context(), caller, cartID, method, payload.CustomerContact)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type submitManualRequest struct {
	Method   string `json:"method" validate:"required"`
	ProofRef string `json:"proof_ref" validate:"required"`
	Note     string `json:"note,omitempty"`
}

// SubmitManualPayment records an out-of-band payment claim for admin
// review.
func SubmitManualPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := middleware.IdentityFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID, err := validators.ParsePathUUID(chi.URLParam(r, "cartID"), "cartID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload submitManualRequest
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

		req, err := svc.SubmitManual(r.Context(), caller, cartID, method, payload.ProofRef, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, req)
	}
}

type processInstantRequest struct {
	Confirmation map[string]any `json:"confirmation" validate:"required"`
}

// ProcessInstantPayment completes a gateway-backed request using the
// gateway's confirmation payload.
func ProcessInstantPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload processInstantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ProcessInstant(r.Context(), caller, requestID, payload.Confirmation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type processP2PRequest struct {
	TransactionRef     string            `json:"transaction_ref" validate:"required"`
	Identifiers        map[string]string `json:"identifiers" validate:"required"`
	VerificationMethod string            `json:"verification_method,omitempty"`
	Note               string            `json:"note,omitempty"`
}

// ProcessP2PPayment records a peer-to-peer transfer claim and opens its
// verification record.
func ProcessP2PPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload processP2PRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ProcessP2P(r.Context(), caller, requestID, payments.P2PSubmission{
			TransactionRef:     payload.TransactionRef,
			Identifiers:        payload.Identifiers,
			VerificationMethod: enums.VerificationMethod(payload.VerificationMethod),
			Note:               payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentStatus reads a request's state with expiry computed on read.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Status(r.Context(), caller, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PaymentCancel cancels a live request and releases its cart.
func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, requestID, err := callerAndRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Cancel(r.Context(), caller, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

// PaymentList lists the caller's payment requests.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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
		page, err := svc.List(r.Context(), caller, filter, p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func paymentListFilter(r *http.Request) (payments.ListFilter, error) {
	var filter payments.ListFilter
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment status")
		}
		filter.Statuses = []enums.PaymentStatus{status}
	}
	if raw := query.Get("method"); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method")
		}
		filter.Method = &method
	}
	if raw := query.Get("approval_status"); raw != "" {
		approval, err := enums.ParseApprovalStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown approval status")
		}
		filter.ApprovalStatus = &approval
	}
	if raw := query.Get("cart_id"); raw != "" {
		cartID, err := validators.ParsePathUUID(raw, "cart_id")
		if err != nil {
			return filter, err
		}
		filter.CartID = &cartID
	}
	return filter, nil
}
