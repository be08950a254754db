package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/metrics"
)

type pendingCartReader interface {
	FindWithStatus(ctx context.Context, status enums.CartStatus, limit int) ([]models.Cart, error)
}

type liveRequestFinder interface {
	FindLiveByCart(ctx context.Context, cartID uuid.UUID) (*models.PaymentRequest, error)
}

// ReconcileJobParams configure the payment-pending reconcile sweep.
type ReconcileJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Reader   pendingCartReader
	Carts    cartWriter
	Requests liveRequestFinder
	Metrics  *metrics.SweeperMetrics
}

// NewReconcileJob builds the job that returns payment-pending carts with
// no live payment request to the active state. The request insert and
// the cart flip share a transaction, so this state only arises from a
// request that later expired, failed, or was cancelled out from under
// the cart.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending cart reader required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repo required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	return &reconcileJob{
		logg:     params.Logger,
		db:       params.DB,
		reader:   params.Reader,
		carts:    params.Carts,
		requests: params.Requests,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

type reconcileJob struct {
	logg     *logger.Logger
	db       txRunner
	reader   pendingCartReader
	carts    cartWriter
	requests liveRequestFinder
	metrics  *metrics.SweeperMetrics
	now      func() time.Time
}

func (j *reconcileJob) Name() string { return "payment-pending-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	candidates, err := j.reader.FindWithStatus(ctx, enums.CartStatusPaymentPending, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query payment-pending carts: %w", err)
	}

	swept := 0
	var errs []error
	for _, candidate := range candidates {
		reclaimed, err := j.reclaimCart(ctx, candidate.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("reclaim cart %s: %w", candidate.ID, err))
			continue
		}
		if reclaimed {
			swept++
		}
	}

	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), "cart", swept)
	}
	logCtx := j.logg.WithField(ctx, "count", swept)
	j.logg.Info(logCtx, "payment-pending reconcile complete")
	return multierr.Combine(errs...)
}

func (j *reconcileJob) reclaimCart(ctx context.Context, cartID uuid.UUID) (bool, error) {
	_, err := j.requests.FindLiveByCart(ctx, cartID)
	if err == nil {
		// A live request still owns this cart.
		return false, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return false, err
	}

	reclaimed := false
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.carts.WithTx(tx)
		current, err := repo.FindByID(ctx, cartID)
		if err != nil {
			return err
		}
		if current.Status != enums.CartStatusPaymentPending {
			return nil
		}
		if err := repo.SaveVersioned(ctx, current, map[string]any{
			"status":     enums.CartStatusActive,
			"updated_at": j.now().UTC(),
		}); err != nil {
			return err
		}
		reclaimed = true
		return nil
	})
	return reclaimed, err
}
