package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// APICredentials holds gateway credentials for one environment.
type APICredentials struct {
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Empty reports whether no credential fields are set.
func (c APICredentials) Empty() bool {
	return c.ClientID == "" && c.ClientSecret == ""
}

// PaymentMethodConfig is the registry entry for one payment method:
// fee schedule, amount bounds, and the routing metadata customers need
// to send funds.
type PaymentMethodConfig struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Method        enums.PaymentMethod     `gorm:"column:method;not null;uniqueIndex"`
	DisplayName   string                  `gorm:"column:display_name;not null"`
	Type          enums.PaymentMethodType `gorm:"column:type;not null"`
	Active        bool                    `gorm:"column:active;not null"`
	MinAmount     decimal.Decimal         `gorm:"column:min_amount;type:numeric(12,2);not null"`
	MaxAmount     decimal.Decimal         `gorm:"column:max_amount;type:numeric(12,2);not null"`
	FixedFee      decimal.Decimal         `gorm:"column:fixed_fee;type:numeric(12,2);not null;default:0"`
	PercentageFee decimal.Decimal         `gorm:"column:percentage_fee;type:numeric(5,2);not null;default:0"`

	AccountEmail  string `gorm:"column:account_email"`
	AccountPhone  string `gorm:"column:account_phone"`
	AccountHandle string `gorm:"column:account_handle"`
	QRCodeRef     string `gorm:"column:qr_code_ref"`
	PaymentLink   string `gorm:"column:payment_link"`
	Instructions  string `gorm:"column:instructions"`

	SandboxMode           bool           `gorm:"column:sandbox_mode;not null"`
	SandboxCredentials    APICredentials `gorm:"column:sandbox_credentials;type:jsonb;serializer:json"`
	ProductionCredentials APICredentials `gorm:"column:production_credentials;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *PaymentMethodConfig) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ActiveCredentials returns the credential set matching the configured mode.
func (c PaymentMethodConfig) ActiveCredentials() APICredentials {
	if c.SandboxMode {
		return c.SandboxCredentials
	}
	return c.ProductionCredentials
}

// RoutingIdentifiers returns the non-empty routing fields customers can
// use to address a peer-to-peer transfer.
func (c PaymentMethodConfig) RoutingIdentifiers() []string {
	ids := []string{}
	for _, v := range []string{c.AccountEmail, c.AccountPhone, c.AccountHandle, c.QRCodeRef, c.PaymentLink} {
		if v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}
