package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// PaymentVerification records a pending or confirmed peer-to-peer
// transfer awaiting administrator review.
type PaymentVerification struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	PaymentRequestID   uuid.UUID                `gorm:"column:payment_request_id;type:uuid;not null;index"`
	TransactionID      string                   `gorm:"column:transaction_id;not null"`
	Method             enums.PaymentMethod      `gorm:"column:method;not null"`
	Amount             decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	Payload            map[string]any           `gorm:"column:payload;type:jsonb;serializer:json"`
	VerificationMethod enums.VerificationMethod `gorm:"column:verification_method;not null"`
	Status             enums.VerificationStatus `gorm:"column:status;not null;default:'pending'"`
	VerifiedBy         *uuid.UUID               `gorm:"column:verified_by;type:uuid"`
	VerifiedAt         *time.Time               `gorm:"column:verified_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *PaymentVerification) BeforeCreate(_ *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
