package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// Tradeline is a sellable credit-line slot with a bounded number of
// concurrent buyers.
type Tradeline struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Bank           string                `gorm:"column:bank;not null"`
	Price          decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	CreditLimit    decimal.Decimal       `gorm:"column:credit_limit;type:numeric(12,2);not null;default:0"`
	MaxSpots       int                   `gorm:"column:max_spots;not null"`
	RemainingSpots int                   `gorm:"column:remaining_spots;not null"`
	Status         enums.TradelineStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Tradeline) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Sellable reports whether the tradeline can be added to a cart.
func (t Tradeline) Sellable() bool {
	return t.Status == enums.TradelineStatusActive && t.RemainingSpots > 0
}
