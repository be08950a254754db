package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

// Service materializes purchases: one grant per cart line, the cart
// flipped to completed, and catalog capacity decremented. Settle runs
// inside the caller's transaction so the payment status flip and the
// grants always land together.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, req *models.PaymentRequest) error
	Repair(ctx context.Context, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the fulfillment service.
type ServiceParams struct {
	Grants            *Repository
	Carts             cart.CartRepository
	Catalog           *catalog.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	grants   *Repository
	carts    cart.CartRepository
	catalog  *catalog.Repository
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a fulfillment service.
func NewService(params ServiceParams) (*service, error) {
	if params.Grants == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "grant repo required")
	}
	if params.Carts == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "cart repo required")
	}
	if params.Catalog == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "catalog repo required")
	}
	if params.TransactionRunner == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		grants:   params.Grants,
		carts:    params.Carts,
		catalog:  params.Catalog,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

// Settle creates one grant per cart line, marks the cart completed, and
// decrements remaining spots for every newly created grant. Re-running
// against an already settled request is a no-op: existing grants are
// skipped and an already completed cart stays untouched.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, req *models.PaymentRequest) error {
	carts := s.carts.WithTx(tx)
	grants := s.grants.WithTx(tx)
	tradelines := s.catalog.WithTx(tx)

	cartRow, err := carts.FindByID(ctx, req.CartID)
	if err != nil {
		return err
	}
	if len(cartRow.Items) == 0 {
		return apperrors.New(apperrors.CodeStateConflict, "cannot settle a cart with no items")
	}

	customerID := cartRow.OwnerID
	if req.CustomerID != nil {
		customerID = *req.CustomerID
	}
	completedAt := s.now().UTC()

	for _, item := range cartRow.Items {
		grant := &models.ClientTradelineGrant{
			CustomerID:       customerID,
			CartID:           cartRow.ID,
			PaymentRequestID: req.ID,
			TradelineID:      item.TradelineID,
			Quantity:         item.Quantity,
			UnitPrice:        item.Rate,
			Total:            item.Amount,
			Status:           enums.GrantStatusActive,
			CompletedAt:      &completedAt,
		}
		created, err := grants.Create(ctx, grant)
		if err != nil {
			return err
		}
		if created {
			if err := tradelines.DecrementSpots(ctx, item.TradelineID, item.Quantity); err != nil {
				return err
			}
		}
	}

	if cartRow.Status != enums.CartStatusCompleted {
		if !cartRow.Status.CanTransitionTo(enums.CartStatusCompleted) {
			return apperrors.Newf(apperrors.CodeStateConflict, "cart is %s and cannot complete", cartRow.Status)
		}
		if err := carts.SaveVersioned(ctx, cartRow, map[string]any{
			"status":     enums.CartStatusCompleted,
			"updated_at": completedAt,
		}); err != nil {
			return err
		}
	}

	return grants.ClearPending(ctx, req.ID)
}

// Repair re-runs settlement for requests left fulfillment-pending by a
// crash between the completion write and grant materialization. Returns
// how many requests were repaired.
func (s *service) Repair(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	pending, err := s.grants.PendingRequests(ctx, limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range pending {
		req := pending[i]
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.Settle(ctx, tx, &req)
		})
		if err != nil {
			s.logg.Error(s.logg.WithPaymentID(ctx, req.ID.String()), "fulfillment repair failed", err)
			continue
		}
		repaired++
	}
	return repaired, nil
}

// GrantsForRequest exposes materialized grants for status reporting.
func (s *service) GrantsForRequest(ctx context.Context, requestID uuid.UUID) ([]models.ClientTradelineGrant, error) {
	return s.grants.ListByRequest(ctx, requestID)
}
