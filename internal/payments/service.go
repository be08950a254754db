package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/internal/repo"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// CheckoutResult is what checkout hands back: the persisted request and
// the method-specific payload the customer acts on.
type CheckoutResult struct {
	Request *models.PaymentRequest      `json:"request"`
	Payload *paymentconfig.DraftPayload `json:"payload"`
}

// P2PSubmission carries a customer's claim that a peer-to-peer transfer
// was sent: their transaction reference plus the identifiers the funds
// came from.
type P2PSubmission struct {
	TransactionRef     string                   `json:"transaction_ref"`
	Identifiers        map[string]string        `json:"identifiers"`
	VerificationMethod enums.VerificationMethod `json:"verification_method"`
	Note               string                   `json:"note"`
}

// ProcessResult reports the outcome of a processor call.
type ProcessResult struct {
	Request              *models.PaymentRequest      `json:"request"`
	RequiresVerification bool                        `json:"requires_verification"`
	NextSteps            string                      `json:"next_steps,omitempty"`
	Verification         *models.PaymentVerification `json:"verification,omitempty"`
}

// StatusView is a point-in-time read of a request. Expiry is computed
// against the clock on every read and never eagerly persisted; only the
// sweeper writes the expired transition.
type StatusView struct {
	Request         *models.PaymentRequest `json:"request"`
	Expired         bool                   `json:"expired"`
	EffectiveStatus enums.PaymentStatus    `json:"effective_status"`
}

// Service orchestrates the payment request lifecycle: checkout, the
// instant and peer-to-peer processors, the manual approval workflow,
// verification, and settlement.
type Service interface {
	CreatePaymentRequest(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod, customerContact string) (*CheckoutResult, error)
	ProcessInstant(ctx context.Context, caller auth.Identity, requestID uuid.UUID, confirmation map[string]any) (*ProcessResult, error)
	ProcessP2P(ctx context.Context, caller auth.Identity, requestID uuid.UUID, sub P2PSubmission) (*ProcessResult, error)
	SubmitManual(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod, proofRef, note string) (*models.PaymentRequest, error)
	ApproveManual(ctx context.Context, caller auth.Identity, requestID uuid.UUID, approve bool, reason string) (*models.PaymentRequest, error)
	SettleApproved(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*models.PaymentRequest, error)
	Verify(ctx context.Context, caller auth.Identity, requestID uuid.UUID, payload map[string]any) (*models.PaymentRequest, error)
	Cancel(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*models.PaymentRequest, error)
	Status(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*StatusView, error)
	List(ctx context.Context, caller auth.Identity, filter ListFilter, p pagination.Params) (pagination.Page[models.PaymentRequest], error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo              PaymentRepository
	Carts             cart.CartRepository
	Checkout          checkoutValidator
	Registry          methodRegistry
	Fulfillment       settler
	Notifier          settlementNotifier
	TransactionRunner txRunner
	RequestTTL        time.Duration
	Clock             func() time.Time
}

type service struct {
	repo        PaymentRepository
	carts       cart.CartRepository
	checkout    checkoutValidator
	registry    methodRegistry
	fulfillment settler
	notifier    settlementNotifier
	txRunner    txRunner
	requestTTL  time.Duration
	now         func() time.Time
}

// NewService constructs a payment service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "payment repo required")
	}
	if params.Carts == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "cart repo required")
	}
	if params.Checkout == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "checkout validator required")
	}
	if params.Registry == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "method registry required")
	}
	if params.Fulfillment == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "fulfillment service required")
	}
	if params.Notifier == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "settlement notifier required")
	}
	if params.TransactionRunner == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner required")
	}
	ttl := params.RequestTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:        params.Repo,
		carts:       params.Carts,
		checkout:    params.Checkout,
		registry:    params.Registry,
		fulfillment: params.Fulfillment,
		notifier:    params.Notifier,
		txRunner:    params.TransactionRunner,
		requestTTL:  ttl,
		now:         clock,
	}, nil
}

// CreatePaymentRequest runs checkout: authorization, payability, catalog
// re-validation, fee computation, then the request insert and the cart
// flip to payment-pending as one transaction. Failure at any step leaves
// the cart unchanged and creates nothing.
func (s *service) CreatePaymentRequest(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod, customerContact string) (*CheckoutResult, error) {
	cfg, err := s.registry.ResolveActive(ctx, method)
	if err != nil {
		return nil, err
	}

	var out *CheckoutResult
	err = repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txCarts := s.carts.WithTx(tx)
			cartRow, err := txCarts.FindByID(ctx, cartID)
			if err != nil {
				return err
			}
			if !caller.CanActOn(cartRow.OwnerID) {
				return apperrors.New(apperrors.CodeForbidden, "cart belongs to another owner")
			}
			if !cartRow.Status.IsMutable() {
				return apperrors.Newf(apperrors.CodeStateConflict, "cart is %s and not payable", cartRow.Status)
			}
			if cartRow.Expired(s.now().UTC()) {
				return apperrors.New(apperrors.CodeStateConflict, "cart has expired")
			}
			if err := s.checkout.ValidateForCheckout(ctx, cartRow); err != nil {
				return err
			}

			requestID := uuid.New()
			reference := paymentReference(requestID)
			payload, err := s.registry.BuildDraft(cfg, cartRow.Total, reference, customerContact)
			if err != nil {
				return err
			}

			owner := cartRow.OwnerID
			now := s.now().UTC()
			req := &models.PaymentRequest{
				ID:            requestID,
				CartID:        cartRow.ID,
				Method:        method,
				Amount:        cartRow.Total,
				Fees:          payload.Fees.Total,
				Total:         payload.TotalPayable,
				CustomerID:    &owner,
				CustomerEmail: customerContact,
				Status:        enums.PaymentStatusPending,
				ExpiresAt:     now.Add(s.requestTTL),
				PaymentPayload: map[string]any{
					"reference_id": reference,
					"method":       method.String(),
				},
			}
			if _, err := s.repo.WithTx(tx).Create(ctx, req); err != nil {
				return err
			}

			if err := txCarts.SaveVersioned(ctx, cartRow, map[string]any{
				"status":         enums.CartStatusPaymentPending,
				"payment_method": method,
				"updated_at":     now,
			}); err != nil {
				return err
			}

			out = &CheckoutResult{Request: req, Payload: payload}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessInstant runs the gateway confirmation check for an API-backed
// method. A missing order id fails the request; the failure itself is
// committed so the record reflects the attempt.
func (s *service) ProcessInstant(ctx context.Context, caller auth.Identity, requestID uuid.UUID, confirmation map[string]any) (*ProcessResult, error) {
	var out *ProcessResult
	var failureReason string

	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		failureReason = ""
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, tx, caller, req); err != nil {
				return err
			}
			if req.Status != enums.PaymentStatusPending {
				return apperrors.Newf(apperrors.CodeStateConflict, "payment request is %s, only pending requests can be processed", req.Status)
			}
			now := s.now().UTC()
			if req.Expired(now) {
				return apperrors.New(apperrors.CodeStateConflict, "payment request has expired")
			}

			response, err := jsonColumn(confirmation)
			if err != nil {
				return err
			}

			orderID, _ := confirmation["order_id"].(string)
			if orderID == "" {
				if err := txRepo.SaveVersioned(ctx, req, map[string]any{
					"status":           enums.PaymentStatusFailed,
					"payment_response": response,
					"rejection_reason": "confirmation missing order id",
					"updated_at":       now,
				}); err != nil {
					return err
				}
				req.Status = enums.PaymentStatusFailed
				failureReason = "confirmation missing order id"
				out = &ProcessResult{Request: req}
				return nil
			}

			if err := txRepo.SaveVersioned(ctx, req, map[string]any{
				"status":              enums.PaymentStatusCompleted,
				"transaction_id":      orderID,
				"payment_response":    response,
				"completed_at":        now,
				"fulfillment_pending": true,
				"updated_at":          now,
			}); err != nil {
				return err
			}
			req.Status = enums.PaymentStatusCompleted
			req.TransactionID = orderID

			if err := s.fulfillment.Settle(ctx, tx, req); err != nil {
				return err
			}
			out = &ProcessResult{Request: req}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if failureReason != "" {
		s.notifier.PaymentFailed(ctx, out.Request, failureReason)
		return out, apperrors.New(apperrors.CodeValidation, failureReason)
	}
	s.notifier.PaymentCompleted(ctx, out.Request)
	return out, nil
}

// ProcessP2P records a customer's claim of a peer-to-peer transfer:
// format-validated identifiers, a synthetic transaction id, and a
// pending verification record an administrator later confirms. The
// request stays non-terminal until verification.
func (s *service) ProcessP2P(ctx context.Context, caller auth.Identity, requestID uuid.UUID, sub P2PSubmission) (*ProcessResult, error) {
	if sub.TransactionRef == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "transaction reference is required")
	}
	verifyMethod := sub.VerificationMethod
	if verifyMethod == "" {
		verifyMethod = enums.VerificationMethodManual
	}
	if !verifyMethod.IsValid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid verification method %q", verifyMethod)
	}

	var out *ProcessResult
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, tx, caller, req); err != nil {
				return err
			}
			if !req.Method.IsPeerToPeer() {
				return apperrors.Newf(apperrors.CodeStateConflict, "%s is not a peer-to-peer method", req.Method)
			}
			if req.Status != enums.PaymentStatusPending {
				return apperrors.Newf(apperrors.CodeStateConflict, "payment request is %s, only pending requests can be processed", req.Status)
			}
			now := s.now().UTC()
			if req.Expired(now) {
				return apperrors.New(apperrors.CodeStateConflict, "payment request has expired")
			}
			if err := ValidateIdentifiers(req.Method, sub.Identifiers); err != nil {
				return err
			}

			syntheticID := fmt.Sprintf("%s_%s", strings.ToUpper(string(req.Method)), sub.TransactionRef)
			verification := &models.PaymentVerification{
				PaymentRequestID:   req.ID,
				TransactionID:      syntheticID,
				Method:             req.Method,
				Amount:             req.Total,
				VerificationMethod: verifyMethod,
				Status:             enums.VerificationStatusPending,
				Payload: map[string]any{
					"identifiers":     sub.Identifiers,
					"transaction_ref": sub.TransactionRef,
					"note":            sub.Note,
				},
			}
			if _, err := txRepo.CreateVerification(ctx, verification); err != nil {
				return err
			}

			response, err := jsonColumn(map[string]any{
				"requires_verification": true,
				"transaction_ref":       sub.TransactionRef,
			})
			if err != nil {
				return err
			}
			if err := txRepo.SaveVersioned(ctx, req, map[string]any{
				"transaction_id":   syntheticID,
				"payment_response": response,
				"updated_at":       now,
			}); err != nil {
				return err
			}
			req.TransactionID = syntheticID

			out = &ProcessResult{
				Request:              req,
				RequiresVerification: true,
				NextSteps:            nextSteps(req.Method),
				Verification:         verification,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitManual creates a payment request from an uploaded proof
// artifact. Manual payments carry zero platform fee and wait for an
// administrator's decision.
func (s *service) SubmitManual(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod, proofRef, note string) (*models.PaymentRequest, error) {
	if !method.IsValid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid payment method %q", method)
	}
	if proofRef == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "proof of payment is required")
	}

	var out *models.PaymentRequest
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txCarts := s.carts.WithTx(tx)
			cartRow, err := txCarts.FindByID(ctx, cartID)
			if err != nil {
				return err
			}
			if !caller.CanActOn(cartRow.OwnerID) {
				return apperrors.New(apperrors.CodeForbidden, "cart belongs to another owner")
			}
			if !cartRow.Status.IsMutable() {
				return apperrors.Newf(apperrors.CodeStateConflict, "cart is %s and not payable", cartRow.Status)
			}
			now := s.now().UTC()
			if cartRow.Expired(now) {
				return apperrors.New(apperrors.CodeStateConflict, "cart has expired")
			}
			if err := s.checkout.ValidateForCheckout(ctx, cartRow); err != nil {
				return err
			}

			owner := cartRow.OwnerID
			req := &models.PaymentRequest{
				CartID:         cartRow.ID,
				Method:         method,
				Amount:         cartRow.Total,
				Fees:           decimal.Zero,
				Total:          cartRow.Total,
				CustomerID:     &owner,
				Status:         enums.PaymentStatusPending,
				IsManual:       true,
				ApprovalStatus: enums.ApprovalStatusPendingApproval,
				ProofRef:       proofRef,
				ExpiresAt:      now.Add(s.requestTTL),
				PaymentPayload: map[string]any{
					"note": note,
				},
			}
			if _, err := s.repo.WithTx(tx).Create(ctx, req); err != nil {
				return err
			}

			if err := txCarts.SaveVersioned(ctx, cartRow, map[string]any{
				"status":         enums.CartStatusPaymentPending,
				"payment_method": method,
				"updated_at":     now,
			}); err != nil {
				return err
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ManualPaymentSubmitted(ctx, out)
	return out, nil
}

// ApproveManual records an administrator's decision on a manually
// submitted payment. The approval status is set exactly once: a second
// decision, including one racing on the same version, gets the
// already-decided conflict.
func (s *service) ApproveManual(ctx context.Context, caller auth.Identity, requestID uuid.UUID, approve bool, reason string) (*models.PaymentRequest, error) {
	if !caller.Admin {
		return nil, apperrors.New(apperrors.CodeForbidden, "administrator privileges required")
	}
	if !approve && reason == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "a rejection reason is required")
	}

	var out *models.PaymentRequest
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			if !req.IsManual {
				return apperrors.New(apperrors.CodeStateConflict, "payment request is not a manual submission")
			}
			if req.ApprovalStatus != enums.ApprovalStatusPendingApproval {
				return apperrors.Newf(apperrors.CodeStateConflict, "payment request is already decided (%s)", req.ApprovalStatus)
			}

			now := s.now().UTC()
			if approve {
				txnID := fmt.Sprintf("MANUAL_%s", paymentReference(req.ID))
				if err := txRepo.SaveVersioned(ctx, req, map[string]any{
					"approval_status": enums.ApprovalStatusApproved,
					"approved_at":     now,
					"transaction_id":  txnID,
					"status":          enums.PaymentStatusDraft,
					"updated_at":      now,
				}); err != nil {
					return err
				}
				req.ApprovalStatus = enums.ApprovalStatusApproved
				req.Status = enums.PaymentStatusDraft
				req.TransactionID = txnID
				req.ApprovedAt = &now
			} else {
				if err := txRepo.SaveVersioned(ctx, req, map[string]any{
					"approval_status":  enums.ApprovalStatusRejected,
					"status":           enums.PaymentStatusFailed,
					"rejection_reason": reason,
					"updated_at":       now,
				}); err != nil {
					return err
				}
				req.ApprovalStatus = enums.ApprovalStatusRejected
				req.Status = enums.PaymentStatusFailed
				req.RejectionReason = reason
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !approve {
		s.notifier.PaymentRejected(ctx, out, reason)
	}
	return out, nil
}

// SettleApproved completes an approved manual payment: the request flips
// to completed and fulfillment materializes grants, all in one
// transaction.
func (s *service) SettleApproved(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*models.PaymentRequest, error) {
	if !caller.Admin {
		return nil, apperrors.New(apperrors.CodeForbidden, "administrator privileges required")
	}

	var out *models.PaymentRequest
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			if !req.IsManual || req.ApprovalStatus != enums.ApprovalStatusApproved || req.Status != enums.PaymentStatusDraft {
				return apperrors.New(apperrors.CodeStateConflict, "only approved manual payments awaiting settlement can settle")
			}

			now := s.now().UTC()
			if err := txRepo.SaveVersioned(ctx, req, map[string]any{
				"status":              enums.PaymentStatusCompleted,
				"completed_at":        now,
				"fulfillment_pending": true,
				"updated_at":          now,
			}); err != nil {
				return err
			}
			req.Status = enums.PaymentStatusCompleted
			req.CompletedAt = &now

			if err := s.fulfillment.Settle(ctx, tx, req); err != nil {
				return err
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PaymentCompleted(ctx, out)
	return out, nil
}

// Verify confirms a peer-to-peer transfer: the verification record and
// the request both flip to verified and fulfillment runs. Verifying an
// already-verified request is a no-op success.
func (s *service) Verify(ctx context.Context, caller auth.Identity, requestID uuid.UUID, payload map[string]any) (*models.PaymentRequest, error) {
	if !caller.Admin {
		return nil, apperrors.New(apperrors.CodeForbidden, "administrator privileges required")
	}

	var out *models.PaymentRequest
	var verified bool
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		verified = false
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			verification, err := txRepo.FindVerificationByRequest(ctx, requestID)
			if err != nil {
				return err
			}
			if verification.Status == enums.VerificationStatusVerified {
				out = req
				return nil
			}
			if !req.Status.CanTransitionTo(enums.PaymentStatusVerified) {
				return apperrors.Newf(apperrors.CodeStateConflict, "payment request is %s and cannot be verified", req.Status)
			}

			now := s.now().UTC()
			verification.Status = enums.VerificationStatusVerified
			verification.VerifiedBy = &caller.UserID
			verification.VerifiedAt = &now
			if len(payload) > 0 {
				if verification.Payload == nil {
					verification.Payload = map[string]any{}
				}
				for k, v := range payload {
					verification.Payload[k] = v
				}
			}
			if err := txRepo.SaveVerification(ctx, verification); err != nil {
				return err
			}

			if err := txRepo.SaveVersioned(ctx, req, map[string]any{
				"status":              enums.PaymentStatusVerified,
				"verified_at":         now,
				"fulfillment_pending": true,
				"updated_at":          now,
			}); err != nil {
				return err
			}
			req.Status = enums.PaymentStatusVerified
			req.VerifiedAt = &now

			if err := s.fulfillment.Settle(ctx, tx, req); err != nil {
				return err
			}
			verified = true
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if verified {
		s.notifier.PaymentCompleted(ctx, out)
	}
	return out, nil
}

// Cancel terminates a non-terminal payment request and releases its cart
// back to active so the owner can retry with another method.
func (s *service) Cancel(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*models.PaymentRequest, error) {
	var out *models.PaymentRequest
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			req, err := txRepo.FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, tx, caller, req); err != nil {
				return err
			}
			if !req.Status.CanTransitionTo(enums.PaymentStatusCancelled) {
				return apperrors.Newf(apperrors.CodeStateConflict, "cannot cancel a %s payment request", req.Status)
			}

			now := s.now().UTC()
			if err := txRepo.SaveVersioned(ctx, req, map[string]any{
				"status":     enums.PaymentStatusCancelled,
				"updated_at": now,
			}); err != nil {
				return err
			}
			req.Status = enums.PaymentStatusCancelled

			txCarts := s.carts.WithTx(tx)
			cartRow, err := txCarts.FindByID(ctx, req.CartID)
			if err != nil {
				return err
			}
			if cartRow.Status == enums.CartStatusPaymentPending {
				if err := txCarts.SaveVersioned(ctx, cartRow, map[string]any{
					"status":     enums.CartStatusActive,
					"updated_at": now,
				}); err != nil {
					return err
				}
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Status reads a request with its expiry computed against the clock.
// The expired state is reported, not persisted; only the sweeper writes
// the transition.
func (s *service) Status(ctx context.Context, caller auth.Identity, requestID uuid.UUID) (*StatusView, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, nil, caller, req); err != nil {
		return nil, err
	}

	view := &StatusView{Request: req, EffectiveStatus: req.Status}
	if isLive(req.Status) && req.Expired(s.now().UTC()) {
		view.Expired = true
		view.EffectiveStatus = enums.PaymentStatusExpired
	}
	return view, nil
}

// List returns payment requests visible to the caller. Non-admins only
// ever see their own.
func (s *service) List(ctx context.Context, caller auth.Identity, filter ListFilter, p pagination.Params) (pagination.Page[models.PaymentRequest], error) {
	if !caller.Admin {
		filter.CustomerID = &caller.UserID
	}
	rows, total, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return pagination.Page[models.PaymentRequest]{}, err
	}
	return pagination.NewPage(rows, p, total), nil
}

// authorize checks the caller against the request's customer, falling
// back to the cart owner for rows that predate the customer column.
func (s *service) authorize(ctx context.Context, tx *gorm.DB, caller auth.Identity, req *models.PaymentRequest) error {
	if req.CustomerID != nil {
		if !caller.CanActOn(*req.CustomerID) {
			return apperrors.New(apperrors.CodeForbidden, "payment request belongs to another customer")
		}
		return nil
	}
	carts := s.carts
	if tx != nil {
		carts = s.carts.WithTx(tx)
	}
	cartRow, err := carts.FindByID(ctx, req.CartID)
	if err != nil {
		return err
	}
	if !caller.CanActOn(cartRow.OwnerID) {
		return apperrors.New(apperrors.CodeForbidden, "payment request belongs to another customer")
	}
	return nil
}

func isLive(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusDraft || status == enums.PaymentStatusPending
}

func paymentReference(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

func nextSteps(method enums.PaymentMethod) string {
	return fmt.Sprintf("Your %s transfer was recorded. An administrator will verify the transaction and complete your order, usually within one business day.", method)
}

// jsonColumn marshals a payload for a map-based column update, where the
// model's JSON serializer does not run.
func jsonColumn(payload map[string]any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "encode payment response")
	}
	return string(raw), nil
}
