package enums

import "fmt"

// TradelineStatus reports whether a tradeline is sellable.
type TradelineStatus string

const (
	TradelineStatusActive   TradelineStatus = "active"
	TradelineStatusInactive TradelineStatus = "inactive"
)

// String implements fmt.Stringer.
func (t TradelineStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TradelineStatus.
func (t TradelineStatus) IsValid() bool {
	return t == TradelineStatusActive || t == TradelineStatusInactive
}

// ParseTradelineStatus converts raw input into a TradelineStatus.
func ParseTradelineStatus(value string) (TradelineStatus, error) {
	switch TradelineStatus(value) {
	case TradelineStatusActive, TradelineStatusInactive:
		return TradelineStatus(value), nil
	}
	return "", fmt.Errorf("invalid tradeline status %q", value)
}
