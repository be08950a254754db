package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/repo"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// liveStatuses are the payment request states still awaiting an outcome.
var liveStatuses = []enums.PaymentStatus{enums.PaymentStatusDraft, enums.PaymentStatusPending}

// ListFilter narrows payment request listings.
type ListFilter struct {
	CustomerID     *uuid.UUID
	CartID         *uuid.UUID
	Method         *enums.PaymentMethod
	Statuses       []enums.PaymentStatus
	ApprovalStatus *enums.ApprovalStatus
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}

// Repository persists payment requests and their verification records.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) PaymentRepository {
	return &Repository{db: tx}
}

// FindByID loads one payment request.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	var row models.PaymentRequest
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "payment request %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "find payment request")
	}
	return &row, nil
}

// FindLiveByCart returns the newest draft or pending request for a cart,
// or NotFound when every request has reached an outcome.
func (r *Repository) FindLiveByCart(ctx context.Context, cartID uuid.UUID) (*models.PaymentRequest, error) {
	var row models.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status IN ?", cartID, liveStatuses).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "no live payment request for cart %s", cartID)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "find live payment request")
	}
	return &row, nil
}

// Create inserts a new payment request.
func (r *Repository) Create(ctx context.Context, req *models.PaymentRequest) (*models.PaymentRequest, error) {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "create payment request")
	}
	return req, nil
}

// SaveVersioned writes updates conditioned on the request's current lock
// version, bumping it on success.
func (r *Repository) SaveVersioned(ctx context.Context, req *models.PaymentRequest, updates map[string]any) error {
	err := repo.UpdateVersioned(r.db.WithContext(ctx), &models.PaymentRequest{}, req.ID, req.LockVersion, updates)
	if err != nil {
		return err
	}
	req.LockVersion++
	return nil
}

// List returns payment requests matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]models.PaymentRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.PaymentRequest{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.CartID != nil {
		q = q.Where("cart_id = ?", *filter.CartID)
	}
	if filter.Method != nil {
		q = q.Where("method = ?", *filter.Method)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.ApprovalStatus != nil {
		q = q.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeInternal, err, "count payment requests")
	}
	var rows []models.PaymentRequest
	if err := pagination.Apply(q, p).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeInternal, err, "list payment requests")
	}
	return rows, total, nil
}

// ListExpired returns live requests whose expiry has passed.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.PaymentRequest, error) {
	var rows []models.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", liveStatuses, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list expired payment requests")
	}
	return rows, nil
}

// CreateVerification inserts a verification record for a request.
func (r *Repository) CreateVerification(ctx context.Context, v *models.PaymentVerification) (*models.PaymentVerification, error) {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "create payment verification")
	}
	return v, nil
}

// FindVerificationByRequest returns the newest verification for a request.
func (r *Repository) FindVerificationByRequest(ctx context.Context, requestID uuid.UUID) (*models.PaymentVerification, error) {
	var row models.PaymentVerification
	err := r.db.WithContext(ctx).
		Where("payment_request_id = ?", requestID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "no verification for payment request %s", requestID)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "find payment verification")
	}
	return &row, nil
}

// SaveVerification persists changes to a verification record.
func (r *Repository) SaveVerification(ctx context.Context, v *models.PaymentVerification) error {
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "save payment verification")
	}
	return nil
}
