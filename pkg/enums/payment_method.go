package enums

import "fmt"

// PaymentMethod identifies a configured way to settle a cart.
type PaymentMethod string

const (
	PaymentMethodPayPal    PaymentMethod = "paypal"
	PaymentMethodAppleCash PaymentMethod = "apple_cash"
	PaymentMethodZelle     PaymentMethod = "zelle"
	PaymentMethodCashApp   PaymentMethod = "cashapp"
	PaymentMethodVenmo     PaymentMethod = "venmo"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodPayPal,
	PaymentMethodAppleCash,
	PaymentMethodZelle,
	PaymentMethodCashApp,
	PaymentMethodVenmo,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsPeerToPeer reports whether settlement happens outside the platform
// and needs the verification workflow.
func (p PaymentMethod) IsPeerToPeer() bool {
	switch p {
	case PaymentMethodAppleCash, PaymentMethodZelle, PaymentMethodCashApp, PaymentMethodVenmo:
		return true
	}
	return false
}

// DefaultType returns the method category used when a config omits one.
func (p PaymentMethod) DefaultType() PaymentMethodType {
	switch p {
	case PaymentMethodPayPal, PaymentMethodAppleCash:
		return PaymentMethodTypeDigitalWallet
	case PaymentMethodZelle:
		return PaymentMethodTypeBankTransfer
	case PaymentMethodCashApp, PaymentMethodVenmo:
		return PaymentMethodTypePeerToPeer
	}
	return PaymentMethodTypePeerToPeer
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
