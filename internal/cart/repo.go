package cart

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

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads one cart with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		First(&cart, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

// FindWorkingByOwner loads the most recent draft/active cart for the owner.
func (r *Repository) FindWorkingByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		Where("owner_id = ? AND status IN ?", ownerID, []enums.CartStatus{enums.CartStatusDraft, enums.CartStatusActive}).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "no working cart for owner")
		}
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// SaveVersioned writes the given columns conditioned on the cart's current
// lock version. The in-memory cart is bumped on success so follow-up
// writes in the same transaction see the new version.
func (r *Repository) SaveVersioned(ctx context.Context, cart *models.Cart, updates map[string]any) error {
	if err := repo.UpdateVersioned(r.db.WithContext(ctx), &models.Cart{}, cart.ID, cart.LockVersion, updates); err != nil {
		return err
	}
	cart.LockVersion++
	return nil
}

// ReplaceItems atomically replaces the items for the provided cart.
func (r *Repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].CartID = cartID
		items[i].ID = uuid.Nil
	}
	return tx.Create(&items).Error
}

// FindExpired returns carts in the given statuses whose expiry passed
// before cutoff, oldest expiry first.
func (r *Repository) FindExpired(ctx context.Context, statuses []enums.CartStatus, cutoff time.Time, limit int) ([]models.Cart, error) {
	var rows []models.Cart
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", statuses, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindWithStatus returns carts currently in one status, oldest first.
func (r *Repository) FindWithStatus(ctx context.Context, status enums.CartStatus, limit int) ([]models.Cart, error) {
	var rows []models.Cart
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// History returns the owner's carts, newest first, optionally filtered by
// status.
func (r *Repository) History(ctx context.Context, ownerID uuid.UUID, statuses []enums.CartStatus, p pagination.Params) ([]models.Cart, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Cart{}).Where("owner_id = ?", ownerID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Cart
	if err := pagination.Apply(q.Preload("Items"), p).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
