package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
)

// ErrVersionMismatch signals that a conditional write observed a stale
// lock version. Mutators return it to request one reload-and-retry.
var ErrVersionMismatch = errors.New("stale lock version")

const conflictBackoff = 25 * time.Millisecond

// RetryOnConflict runs fn under the optimistic-concurrency contract:
// fn reads the current row, applies its mutation, and writes conditioned
// on lock_version. On ErrVersionMismatch the whole fn is re-run exactly
// once with fresh state; a second mismatch surfaces as
// CONCURRENT_MODIFICATION.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, ErrVersionMismatch) {
		return apperrors.New(apperrors.CodeConcurrentModification, "record was modified concurrently, please retry")
	}
	return err
}

// UpdateVersioned writes updates to the row identified by id, conditioned
// on lock_version still matching. The lock version is bumped as part of
// the write. Returns ErrVersionMismatch when another writer got there
// first (or the row vanished).
func UpdateVersioned(tx *gorm.DB, model any, id uuid.UUID, version int, updates map[string]any) error {
	merged := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		merged[k] = v
	}
	merged["lock_version"] = version + 1

	res := tx.Model(model).
		Where("id = ? AND lock_version = ?", id, version).
		Updates(merged)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionMismatch
	}
	return nil
}
