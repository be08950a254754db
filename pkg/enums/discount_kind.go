package enums

import "fmt"

// DiscountKind distinguishes flat-amount from percentage cart discounts.
type DiscountKind string

const (
	DiscountKindAmount     DiscountKind = "amount"
	DiscountKindPercentage DiscountKind = "percentage"
)

// String implements fmt.Stringer.
func (d DiscountKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountKind.
func (d DiscountKind) IsValid() bool {
	return d == DiscountKindAmount || d == DiscountKindPercentage
}

// ParseDiscountKind converts raw input into a DiscountKind.
func ParseDiscountKind(value string) (DiscountKind, error) {
	switch DiscountKind(value) {
	case DiscountKindAmount, DiscountKindPercentage:
		return DiscountKind(value), nil
	}
	return "", fmt.Errorf("invalid discount kind %q", value)
}
