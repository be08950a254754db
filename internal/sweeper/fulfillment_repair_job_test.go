package sweeper

import (
	"context"
	"errors"
	"testing"
)

type stubRepairer struct {
	repaired int
	err      error
	calls    int
	limit    int
}

func (s *stubRepairer) Repair(_ context.Context, limit int) (int, error) {
	s.calls++
	s.limit = limit
	return s.repaired, s.err
}

func TestFulfillmentRepairJob_DelegatesToService(t *testing.T) {
	repairer := &stubRepairer{repaired: 3}
	job, err := NewFulfillmentRepairJob(FulfillmentRepairJobParams{
		Logger:      newTestLogger(),
		Fulfillment: repairer,
	})
	if err != nil {
		t.Fatalf("NewFulfillmentRepairJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repairer.calls != 1 {
		t.Fatalf("repair calls = %d, want 1", repairer.calls)
	}
	if repairer.limit != sweepBatchSize {
		t.Fatalf("repair limit = %d, want %d", repairer.limit, sweepBatchSize)
	}
}

func TestFulfillmentRepairJob_SurfacesErrors(t *testing.T) {
	repairer := &stubRepairer{err: errors.New("db unavailable")}
	job, err := NewFulfillmentRepairJob(FulfillmentRepairJobParams{
		Logger:      newTestLogger(),
		Fulfillment: repairer,
	})
	if err != nil {
		t.Fatalf("NewFulfillmentRepairJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected repair error to surface")
	}
}
