package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// Repository exposes persistence operations for the tradeline catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Find loads one tradeline by id.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Tradeline, error) {
	var row models.Tradeline
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "tradeline not found")
		}
		return nil, err
	}
	return &row, nil
}

// ListActive returns sellable tradelines, newest first.
func (r *Repository) ListActive(ctx context.Context, p pagination.Params) ([]models.Tradeline, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Tradeline{}).
		Where("status = ?", enums.TradelineStatusActive)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Tradeline
	if err := pagination.Apply(q, p).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Create inserts a tradeline.
func (r *Repository) Create(ctx context.Context, row *models.Tradeline) (*models.Tradeline, error) {
	if row.RemainingSpots == 0 && row.MaxSpots > 0 {
		row.RemainingSpots = row.MaxSpots
	}
	if row.Status == "" {
		row.Status = enums.TradelineStatusActive
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// DecrementSpots consumes quantity slots on a tradeline. The conditional
// write refuses to oversell when a concurrent settlement got there first.
func (r *Repository) DecrementSpots(ctx context.Context, id uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.Tradeline{}).
		Where("id = ? AND remaining_spots >= ?", id, quantity).
		UpdateColumn("remaining_spots", gorm.Expr("remaining_spots - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeCapacity, "tradeline has no remaining spots")
	}
	return nil
}

// RestoreSpots returns quantity slots to a tradeline, capped at max_spots.
func (r *Repository) RestoreSpots(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.Tradeline{}).
		Where("id = ?", id).
		UpdateColumn("remaining_spots", gorm.Expr(
			"CASE WHEN remaining_spots + ? > max_spots THEN max_spots ELSE remaining_spots + ? END",
			quantity, quantity,
		)).Error
}
