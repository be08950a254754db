package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one tradeline line inside a Cart. Amount is derived from
// quantity and rate on every mutation.
type CartItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	TradelineID   uuid.UUID       `gorm:"column:tradeline_id;type:uuid;not null"`
	TradelineName string          `gorm:"column:tradeline_name;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(12,2);not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Recalculate re-derives the line amount from quantity and rate.
func (i *CartItem) Recalculate() {
	i.Amount = i.Rate.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
