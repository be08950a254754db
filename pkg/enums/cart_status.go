package enums

import "fmt"

// CartStatus tracks where a cart sits in its lifecycle.
type CartStatus string

const (
	CartStatusDraft          CartStatus = "draft"
	CartStatusActive         CartStatus = "active"
	CartStatusPaymentPending CartStatus = "payment_pending"
	CartStatusCheckedOut     CartStatus = "checked_out"
	CartStatusCompleted      CartStatus = "completed"
	CartStatusAbandoned      CartStatus = "abandoned"
	CartStatusExpired        CartStatus = "expired"
)

var validCartStatuses = []CartStatus{
	CartStatusDraft,
	CartStatusActive,
	CartStatusPaymentPending,
	CartStatusCheckedOut,
	CartStatusCompleted,
	CartStatusAbandoned,
	CartStatusExpired,
}

// cartTransitions encodes the legal status moves. Terminal states have no
// outgoing edges; draft and active are interchangeable working states.
var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusDraft:          {CartStatusActive, CartStatusPaymentPending, CartStatusCheckedOut, CartStatusAbandoned, CartStatusExpired},
	CartStatusActive:         {CartStatusDraft, CartStatusPaymentPending, CartStatusCheckedOut, CartStatusAbandoned, CartStatusExpired},
	CartStatusPaymentPending: {CartStatusActive, CartStatusCompleted, CartStatusCheckedOut, CartStatusAbandoned, CartStatusExpired},
	CartStatusCheckedOut:     {CartStatusCompleted},
	CartStatusAbandoned:      {CartStatusExpired},
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (c CartStatus) IsTerminal() bool {
	return len(cartTransitions[c]) == 0
}

// IsMutable reports whether cart contents may still change.
func (c CartStatus) IsMutable() bool {
	return c == CartStatusDraft || c == CartStatusActive
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (c CartStatus) CanTransitionTo(next CartStatus) bool {
	for _, candidate := range cartTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
