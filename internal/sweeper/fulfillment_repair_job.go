package sweeper

import (
	"context"
	"fmt"

	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/metrics"
)

type grantRepairer interface {
	Repair(ctx context.Context, limit int) (int, error)
}

// FulfillmentRepairJobParams configure the grant repair sweep.
type FulfillmentRepairJobParams struct {
	Logger      *logger.Logger
	Fulfillment grantRepairer
	Metrics     *metrics.SweeperMetrics
}

// NewFulfillmentRepairJob builds the job that re-runs settlement for
// completed requests whose grants never materialized.
func NewFulfillmentRepairJob(params FulfillmentRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	return &fulfillmentRepairJob{
		logg:        params.Logger,
		fulfillment: params.Fulfillment,
		metrics:     params.Metrics,
	}, nil
}

type fulfillmentRepairJob struct {
	logg        *logger.Logger
	fulfillment grantRepairer
	metrics     *metrics.SweeperMetrics
}

func (j *fulfillmentRepairJob) Name() string { return "fulfillment-repair" }

func (j *fulfillmentRepairJob) Run(ctx context.Context) error {
	repaired, err := j.fulfillment.Repair(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("repair fulfillments: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddSwept(j.Name(), "payment_request", repaired)
	}
	logCtx := j.logg.WithField(ctx, "count", repaired)
	j.logg.Info(logCtx, "fulfillment repair complete")
	return nil
}
