package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/db"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

const uniqueGrantConstraint = "uq_grants_request_tradeline"

// Repository persists client tradeline grants.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a grant repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a grant. Returns false without error when a grant for
// the same payment request and tradeline already exists, so a repair
// re-run never duplicates what a crashed settlement already wrote.
func (r *Repository) Create(ctx context.Context, grant *models.ClientTradelineGrant) (bool, error) {
	err := r.db.WithContext(ctx).Create(grant).Error
	if err != nil {
		if db.IsUniqueViolation(err, uniqueGrantConstraint) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.CodeInternal, err, "create grant")
	}
	return true, nil
}

// ListByRequest returns every grant materialized for one payment request.
func (r *Repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.ClientTradelineGrant, error) {
	var rows []models.ClientTradelineGrant
	err := r.db.WithContext(ctx).
		Where("payment_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list grants by request")
	}
	return rows, nil
}

// ListByCustomer returns a customer's grants, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, p pagination.Params) ([]models.ClientTradelineGrant, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ClientTradelineGrant{}).
		Where("customer_id = ?", customerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeInternal, err, "count grants")
	}

	var rows []models.ClientTradelineGrant
	if err := pagination.Apply(q, p).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeInternal, err, "list grants")
	}
	return rows, total, nil
}

// PendingRequests returns settled payment requests whose grant
// materialization never finished, oldest first.
func (r *Repository) PendingRequests(ctx context.Context, limit int) ([]models.PaymentRequest, error) {
	var rows []models.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("fulfillment_pending = ?", true).
		Where("status IN ?", []enums.PaymentStatus{enums.PaymentStatusCompleted, enums.PaymentStatusVerified}).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list fulfillment-pending requests")
	}
	return rows, nil
}

// ClearPending drops the repair marker once grants exist.
func (r *Repository) ClearPending(ctx context.Context, requestID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("id = ?", requestID).
		Update("fulfillment_pending", false).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "clear fulfillment pending")
	}
	return nil
}
