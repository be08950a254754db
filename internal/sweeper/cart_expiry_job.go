package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/metrics"
)

const sweepBatchSize = 200

// cartExpiryStatuses are the cart states the expiry sweep may touch.
// Terminal and payment-pending states are never expired here.
var cartExpiryStatuses = []enums.CartStatus{enums.CartStatusActive, enums.CartStatusAbandoned}

type expiredCartReader interface {
	FindExpired(ctx context.Context, statuses []enums.CartStatus, cutoff time.Time, limit int) ([]models.Cart, error)
}

type cartWriter interface {
	WithTx(tx *gorm.DB) cart.CartRepository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CartExpiryJobParams configure the cart expiry sweep.
type CartExpiryJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Reader  expiredCartReader
	Carts   cartWriter
	Metrics *metrics.SweeperMetrics
}

// NewCartExpiryJob builds the job that expires stale carts.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired cart reader required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repo required")
	}
	return &cartExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		reader:  params.Reader,
		carts:   params.Carts,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	reader  expiredCartReader
	carts   cartWriter
	metrics *metrics.SweeperMetrics
	now     func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	candidates, err := j.reader.FindExpired(ctx, cartExpiryStatuses, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query expired carts: %w", err)
	}

	swept := 0
	var errs []error
	for _, candidate := range candidates {
		if err := j.expireCart(ctx, candidate.ID, cutoff); err != nil {
			errs = append(errs, fmt.Errorf("expire cart %s: %w", candidate.ID, err))
			continue
		}
		swept++
	}

	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), "cart", swept)
	}
	logCtx := j.logg.WithField(ctx, "count", swept)
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return multierr.Combine(errs...)
}

// expireCart re-reads the cart inside the transaction so a cart a buyer
// revived between the scan and the write is left alone.
func (j *cartExpiryJob) expireCart(ctx context.Context, cartID uuid.UUID, cutoff time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.carts.WithTx(tx)
		current, err := repo.FindByID(ctx, cartID)
		if err != nil {
			return err
		}
		if !stillExpirable(current, cutoff) {
			return nil
		}
		return repo.SaveVersioned(ctx, current, map[string]any{
			"status":     enums.CartStatusExpired,
			"updated_at": cutoff,
		})
	})
}

func stillExpirable(c *models.Cart, cutoff time.Time) bool {
	if !c.Expired(cutoff) {
		return false
	}
	for _, status := range cartExpiryStatuses {
		if c.Status == status {
			return c.Status.CanTransitionTo(enums.CartStatusExpired)
		}
	}
	return false
}
