package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/metrics"
)

type expiredRequestReader interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.PaymentRequest, error)
}

type requestWriter interface {
	WithTx(tx *gorm.DB) payments.PaymentRepository
}

type expiryNotifier interface {
	PaymentExpired(ctx context.Context, req *models.PaymentRequest)
}

// PaymentExpiryJobParams configure the payment request expiry sweep.
type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Reader   expiredRequestReader
	Requests requestWriter
	Notifier expiryNotifier
	Metrics  *metrics.SweeperMetrics
}

// NewPaymentExpiryJob builds the job that expires stale payment requests.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired request reader required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		db:       params.DB,
		reader:   params.Reader,
		requests: params.Requests,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	reader   expiredRequestReader
	requests requestWriter
	notifier expiryNotifier
	metrics  *metrics.SweeperMetrics
	now      func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	candidates, err := j.reader.ListExpired(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query expired payment requests: %w", err)
	}

	swept := 0
	var errs []error
	for i := range candidates {
		expired, err := j.expireRequest(ctx, candidates[i].ID, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire request %s: %w", candidates[i].ID, err))
			continue
		}
		if expired == nil {
			continue
		}
		swept++
		if j.notifier != nil {
			j.notifier.PaymentExpired(ctx, expired)
		}
	}

	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), "payment_request", swept)
	}
	logCtx := j.logg.WithField(ctx, "count", swept)
	j.logg.Info(logCtx, "payment expiry sweep complete")
	return multierr.Combine(errs...)
}

// expireRequest re-reads the request inside the transaction; anything
// that reached an outcome between the scan and the write is skipped.
// Terminal states are never touched.
func (j *paymentExpiryJob) expireRequest(ctx context.Context, requestID uuid.UUID, cutoff time.Time) (*models.PaymentRequest, error) {
	var expired *models.PaymentRequest
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.requests.WithTx(tx)
		current, err := repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status != enums.PaymentStatusDraft && current.Status != enums.PaymentStatusPending {
			return nil
		}
		if !current.Expired(cutoff) {
			return nil
		}
		if err := repo.SaveVersioned(ctx, current, map[string]any{
			"status":           enums.PaymentStatusExpired,
			"rejection_reason": "payment window elapsed",
			"updated_at":       cutoff,
		}); err != nil {
			return err
		}
		current.Status = enums.PaymentStatusExpired
		expired = current
		return nil
	})
	return expired, err
}
