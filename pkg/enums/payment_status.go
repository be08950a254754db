package enums

import "fmt"

// PaymentStatus tracks one payment attempt against a cart.
type PaymentStatus string

const (
	PaymentStatusDraft     PaymentStatus = "draft"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusVerified  PaymentStatus = "verified"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusDraft,
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusVerified,
	PaymentStatusExpired,
	PaymentStatusCancelled,
}

// paymentTransitions encodes the legal status moves. A manual approval
// parks the request back in draft until settlement bookkeeping runs.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusDraft:     {PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled},
	PaymentStatusPending:   {PaymentStatusDraft, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusVerified, PaymentStatusExpired, PaymentStatusCancelled},
	PaymentStatusCompleted: {PaymentStatusVerified},
	PaymentStatusVerified:  {},
	PaymentStatusFailed:    {},
	PaymentStatusExpired:   {},
	PaymentStatusCancelled: {},
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (p PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[p]) == 0
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
