package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/internal/repo"
	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	"github.com/rockettradeline/tradeline-backend/pkg/db"
	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/pagination"
)

const uniqueWorkingCartConstraint = "uq_carts_owner_working"

// Service exposes the cart lifecycle: creation, item mutation, discount
// and expiry management, and the checkout precondition check.
type Service interface {
	GetOrCreate(ctx context.Context, caller auth.Identity) (*models.Cart, error)
	Get(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error)
	History(ctx context.Context, caller auth.Identity, statuses []enums.CartStatus, p pagination.Params) (pagination.Page[models.Cart], error)
	AddItem(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID, quantity int) (*models.Cart, error)
	SetItemQuantity(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error)
	ApplyDiscount(ctx context.Context, caller auth.Identity, cartID uuid.UUID, kind enums.DiscountKind, value decimal.Decimal) (*models.Cart, error)
	SetPaymentMethod(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod) (*models.Cart, error)
	ExtendExpiry(ctx context.Context, caller auth.Identity, cartID uuid.UUID, days int) (*models.Cart, error)
	Cancel(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error)
	ValidateForCheckout(ctx context.Context, cart *models.Cart) error
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo              CartRepository
	Tradelines        tradelineLoader
	TransactionRunner txRunner
	CartTTL           time.Duration
	Clock             func() time.Time
}

type service struct {
	repo       CartRepository
	tradelines tradelineLoader
	txRunner   txRunner
	cartTTL    time.Duration
	now        func() time.Time
}

// NewService constructs a cart service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "cart repo required")
	}
	if params.Tradelines == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "tradeline loader required")
	}
	if params.TransactionRunner == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "transaction runner required")
	}
	ttl := params.CartTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:       params.Repo,
		tradelines: params.Tradelines,
		txRunner:   params.TransactionRunner,
		cartTTL:    ttl,
		now:        clock,
	}, nil
}

// GetOrCreate returns the caller's working cart, creating one when none
// exists. A concurrent create converges on the row that won the unique
// index instead of duplicating.
func (s *service) GetOrCreate(ctx context.Context, caller auth.Identity) (*models.Cart, error) {
	existing, err := s.repo.FindWorkingByOwner(ctx, caller.UserID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	cart := &models.Cart{
		OwnerID:   caller.UserID,
		Status:    enums.CartStatusActive,
		Subtotal:  decimal.Zero,
		Discount:  decimal.Zero,
		Tax:       decimal.Zero,
		Total:     decimal.Zero,
		ExpiresAt: s.now().UTC().Add(s.cartTTL),
	}
	created, err := s.repo.Create(ctx, cart)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueWorkingCartConstraint) {
			return s.repo.FindWorkingByOwner(ctx, caller.UserID)
		}
		return nil, err
	}
	return created, nil
}

// Get loads a cart visible to the caller.
func (s *service) Get(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOn(cart.OwnerID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "cart belongs to another owner")
	}
	return cart, nil
}

// History lists the caller's carts, newest first.
func (s *service) History(ctx context.Context, caller auth.Identity, statuses []enums.CartStatus, p pagination.Params) (pagination.Page[models.Cart], error) {
	rows, total, err := s.repo.History(ctx, caller.UserID, statuses, p)
	if err != nil {
		return pagination.Page[models.Cart]{}, err
	}
	return pagination.NewPage(rows, p, total), nil
}

// AddItem appends a line for the tradeline, or increments the existing
// line's quantity. Capacity is re-checked on every optimistic retry so
// two racing adds cannot oversell a slot.
func (s *service) AddItem(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		tl, err := s.tradelines.Find(ctx, tradelineID)
		if err != nil {
			return err
		}
		if tl.Status != enums.TradelineStatusActive {
			return apperrors.New(apperrors.CodeStateConflict, "tradeline is not sellable")
		}

		idx := itemIndex(cart.Items, tradelineID)
		resulting := quantity
		if idx >= 0 {
			resulting += cart.Items[idx].Quantity
		}
		if resulting > tl.RemainingSpots {
			return apperrors.Newf(apperrors.CodeCapacity, "requested %d spots but only %d remain", resulting, tl.RemainingSpots)
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = resulting
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:        cart.ID,
				TradelineID:   tl.ID,
				TradelineName: tl.Bank,
				Quantity:      quantity,
				Rate:          tl.Price,
			})
		}
		return nil
	})
}

// SetItemQuantity pins a line to an absolute quantity. Zero or negative
// removes the line.
func (s *service) SetItemQuantity(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, caller, cartID, tradelineID)
	}
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		tl, err := s.tradelines.Find(ctx, tradelineID)
		if err != nil {
			return err
		}
		if tl.Status != enums.TradelineStatusActive {
			return apperrors.New(apperrors.CodeStateConflict, "tradeline is not sellable")
		}
		if quantity > tl.RemainingSpots {
			return apperrors.Newf(apperrors.CodeCapacity, "requested %d spots but only %d remain", quantity, tl.RemainingSpots)
		}

		idx := itemIndex(cart.Items, tradelineID)
		if idx >= 0 {
			cart.Items[idx].Quantity = quantity
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:        cart.ID,
				TradelineID:   tl.ID,
				TradelineName: tl.Bank,
				Quantity:      quantity,
				Rate:          tl.Price,
			})
		}
		return nil
	})
}

// RemoveItem drops a line. Removing an absent line is a no-op success.
func (s *service) RemoveItem(ctx context.Context, caller auth.Identity, cartID, tradelineID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		idx := itemIndex(cart.Items, tradelineID)
		if idx < 0 {
			return nil
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

// Clear removes every line and resets the discount inputs.
func (s *service) Clear(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		cart.Items = nil
		cart.DiscountKind = nil
		cart.DiscountValue = decimal.Zero
		return nil
	})
}

// ApplyDiscount records a flat or percentage discount on the cart.
func (s *service) ApplyDiscount(ctx context.Context, caller auth.Identity, cartID uuid.UUID, kind enums.DiscountKind, value decimal.Decimal) (*models.Cart, error) {
	if !kind.IsValid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid discount kind %q", kind)
	}
	if kind == enums.DiscountKindPercentage {
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperrors.New(apperrors.CodeValidation, "percentage discount must be between 0 and 100")
		}
	}
	if kind == enums.DiscountKindAmount && value.IsNegative() {
		value = decimal.Zero
	}
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		k := kind
		cart.DiscountKind = &k
		cart.DiscountValue = value
		return nil
	})
}

// SetPaymentMethod records the method the owner intends to pay with.
func (s *service) SetPaymentMethod(ctx context.Context, caller auth.Identity, cartID uuid.UUID, method enums.PaymentMethod) (*models.Cart, error) {
	if !method.IsValid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid payment method %q", method)
	}
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		m := method
		cart.PaymentMethod = &m
		return nil
	})
}

// ExtendExpiry pushes the cart expiry to now + days.
func (s *service) ExtendExpiry(ctx context.Context, caller auth.Identity, cartID uuid.UUID, days int) (*models.Cart, error) {
	if days <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "extension days must be positive")
	}
	return s.mutate(ctx, caller, cartID, func(ctx context.Context, cart *models.Cart) error {
		cart.ExpiresAt = s.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
		return nil
	})
}

// Cancel abandons a cart from any non-terminal state. One-way, with no
// fulfillment side effects.
func (s *service) Cancel(ctx context.Context, caller auth.Identity, cartID uuid.UUID) (*models.Cart, error) {
	var out *models.Cart
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			cart, err := txRepo.FindByID(ctx, cartID)
			if err != nil {
				return err
			}
			if !caller.CanActOn(cart.OwnerID) {
				return apperrors.New(apperrors.CodeForbidden, "cart belongs to another owner")
			}
			if !cart.Status.CanTransitionTo(enums.CartStatusAbandoned) {
				return apperrors.Newf(apperrors.CodeStateConflict, "cannot cancel a %s cart", cart.Status)
			}
			if err := txRepo.SaveVersioned(ctx, cart, map[string]any{
				"status":     enums.CartStatusAbandoned,
				"updated_at": s.now().UTC(),
			}); err != nil {
				return err
			}
			cart.Status = enums.CartStatusAbandoned
			out = cart
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateForCheckout re-checks the cart against current catalog state.
// Capacity can shrink between add-to-cart and checkout.
func (s *service) ValidateForCheckout(ctx context.Context, cart *models.Cart) error {
	if len(cart.Items) == 0 {
		return apperrors.New(apperrors.CodeStateConflict, "cart has no items")
	}
	for _, item := range cart.Items {
		tl, err := s.tradelines.Find(ctx, item.TradelineID)
		if err != nil {
			return err
		}
		if tl.Status != enums.TradelineStatusActive {
			return apperrors.Newf(apperrors.CodeStateConflict, "tradeline %s is no longer sellable", item.TradelineName)
		}
		if item.Quantity > tl.RemainingSpots {
			return apperrors.Newf(apperrors.CodeCapacity, "tradeline %s has only %d spots remaining", item.TradelineName, tl.RemainingSpots)
		}
	}
	return nil
}

// mutate runs one cart mutation under the optimistic-concurrency contract:
// fresh load, ownership and mutability checks, the mutation itself, totals
// recompute, then a conditional write. A stale lock version re-runs the
// whole closure once with fresh state.
func (s *service) mutate(ctx context.Context, caller auth.Identity, cartID uuid.UUID, fn func(ctx context.Context, cart *models.Cart) error) (*models.Cart, error) {
	var out *models.Cart
	err := repo.RetryOnConflict(ctx, func(ctx context.Context) error {
		return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			cart, err := txRepo.FindByID(ctx, cartID)
			if err != nil {
				return err
			}
			if !caller.CanActOn(cart.OwnerID) {
				return apperrors.New(apperrors.CodeForbidden, "cart belongs to another owner")
			}
			if !cart.Status.IsMutable() {
				return apperrors.Newf(apperrors.CodeStateConflict, "cart is %s and can no longer change", cart.Status)
			}
			if cart.Expired(s.now().UTC()) {
				return apperrors.New(apperrors.CodeStateConflict, "cart has expired")
			}

			if err := fn(ctx, cart); err != nil {
				return err
			}
			if err := recomputeTotals(cart); err != nil {
				return err
			}

			if err := txRepo.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
				return err
			}
			updates := map[string]any{
				"subtotal":       cart.Subtotal,
				"discount":       cart.Discount,
				"discount_value": cart.DiscountValue,
				"tax":            cart.Tax,
				"total":          cart.Total,
				"expires_at":     cart.ExpiresAt,
				"updated_at":     s.now().UTC(),
			}
			if cart.DiscountKind != nil {
				updates["discount_kind"] = *cart.DiscountKind
			} else {
				updates["discount_kind"] = nil
			}
			if cart.PaymentMethod != nil {
				updates["payment_method"] = *cart.PaymentMethod
			}
			if err := txRepo.SaveVersioned(ctx, cart, updates); err != nil {
				return err
			}
			out = cart
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func itemIndex(items []models.CartItem, tradelineID uuid.UUID) int {
	for i := range items {
		if items[i].TradelineID == tradelineID {
			return i
		}
	}
	return -1
}
