package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindWorkingByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	SaveVersioned(ctx context.Context, cart *models.Cart, updates map[string]any) error
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	History(ctx context.Context, ownerID uuid.UUID, statuses []enums.CartStatus, p pagination.Params) ([]models.Cart, int64, error)
}

// tradelineLoader supplies catalog state for capacity and price checks.
type tradelineLoader interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Tradeline, error)
}

// txRunner executes fn inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
