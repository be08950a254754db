package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// Cart is a buyer's mutable pending order. Totals are always re-derived
// from items + discount + tax, never stored independently of their inputs.
type Cart struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID       uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	CustomerID    *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	Status        enums.CartStatus     `gorm:"column:status;not null;default:'draft'"`
	PaymentMethod *enums.PaymentMethod `gorm:"column:payment_method"`
	Subtotal      decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountKind  *enums.DiscountKind  `gorm:"column:discount_kind"`
	DiscountValue decimal.Decimal      `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	Discount      decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Tax           decimal.Decimal      `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Total         decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	ExpiresAt     time.Time            `gorm:"column:expires_at;not null"`
	LockVersion   int                  `gorm:"column:lock_version;not null;default:0"`
	Items         []CartItem           `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Expired reports whether the cart's expiry has passed at the given instant.
func (c Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
