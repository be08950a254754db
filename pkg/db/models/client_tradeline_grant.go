package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// ClientTradelineGrant gives a customer usable access to purchased
// tradeline slots. Created exactly once per cart line on settlement;
// immutable afterwards except for status transitions.
type ClientTradelineGrant struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID       uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	CartID           uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	PaymentRequestID uuid.UUID         `gorm:"column:payment_request_id;type:uuid;not null;uniqueIndex:uq_grants_request_tradeline"`
	TradelineID      uuid.UUID         `gorm:"column:tradeline_id;type:uuid;not null;uniqueIndex:uq_grants_request_tradeline"`
	Quantity         int               `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total            decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status           enums.GrantStatus `gorm:"column:status;not null;default:'active'"`
	CompletedAt      *time.Time        `gorm:"column:completed_at"`
	Notes            string            `gorm:"column:notes"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *ClientTradelineGrant) BeforeCreate(_ *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
