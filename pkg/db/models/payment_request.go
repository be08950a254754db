package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// PaymentRequest tracks one attempt to settle a cart's total via a
// specific payment method. It owns its own state machine, distinct from
// the cart's.
type PaymentRequest struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CartID          uuid.UUID            `gorm:"column:cart_id;type:uuid;not null;index"`
	Method          enums.PaymentMethod  `gorm:"column:method;not null"`
	Amount          decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Fees            decimal.Decimal      `gorm:"column:fees;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	CustomerID      *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	CustomerEmail   string               `gorm:"column:customer_email"`
	Status          enums.PaymentStatus  `gorm:"column:status;not null;default:'pending'"`
	IsManual        bool                 `gorm:"column:is_manual;not null;default:false"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:approval_status;not null;default:'none'"`
	TransactionID   string               `gorm:"column:transaction_id"`
	ProofRef        string               `gorm:"column:proof_ref"`
	RejectionReason string               `gorm:"column:rejection_reason"`

	PaymentPayload  map[string]any `gorm:"column:payment_payload;type:jsonb;serializer:json"`
	PaymentResponse map[string]any `gorm:"column:payment_response;type:jsonb;serializer:json"`

	FulfillmentPending bool `gorm:"column:fulfillment_pending;not null;default:false"`
	LockVersion        int  `gorm:"column:lock_version;not null;default:0"`

	ExpiresAt   time.Time  `gorm:"column:expires_at;not null"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	VerifiedAt  *time.Time `gorm:"column:verified_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentRequest) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Expired reports whether the request's expiry has passed at the given
// instant. Computed on read; only the sweeper persists the transition.
func (p PaymentRequest) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// TotalConsistent reports whether total matches amount + fees within a
// 0.01 currency-unit tolerance.
func (p PaymentRequest) TotalConsistent() bool {
	diff := p.Total.Sub(p.Amount.Add(p.Fees)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(0.01))
}
