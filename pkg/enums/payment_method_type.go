package enums

import "fmt"

// PaymentMethodType categorizes payment methods by settlement channel.
type PaymentMethodType string

const (
	PaymentMethodTypeDigitalWallet PaymentMethodType = "digital_wallet"
	PaymentMethodTypeBankTransfer  PaymentMethodType = "bank_transfer"
	PaymentMethodTypePeerToPeer    PaymentMethodType = "peer_to_peer"
	PaymentMethodTypeCard          PaymentMethodType = "card"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeDigitalWallet,
	PaymentMethodTypeBankTransfer,
	PaymentMethodTypePeerToPeer,
	PaymentMethodTypeCard,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethodType.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}
