package sweeper

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	return f.acquired, f.err
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "sweeper-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	first := &testJob{name: "first", err: errors.New("boom")}
	second := &testJob{name: "second"}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
		Interval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", first.runs, second.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock release, got %d", lock.releases)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "skipped"}
	lock := &fakeLock{acquired: false}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run when lock is held elsewhere, ran %d times", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("lock should not be released when never acquired")
	}
}

func TestServiceRunCyclePropagatesLockError(t *testing.T) {
	lock := &fakeLock{err: errors.New("redis down")}
	service, err := NewService(ServiceParams{
		Logger: newTestLogger(),
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := service.runCycle(context.Background()); err == nil {
		t.Fatalf("expected lock error to surface")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: newTestLogger()}); err == nil {
		t.Fatalf("expected error when lock missing")
	}
}
