package enums

import "fmt"

// ApprovalStatus tracks the admin decision on a manually submitted payment.
// Only meaningful when the payment request carries the manual flag.
type ApprovalStatus string

const (
	ApprovalStatusNone            ApprovalStatus = "none"
	ApprovalStatusPendingApproval ApprovalStatus = "pending_approval"
	ApprovalStatusApproved        ApprovalStatus = "approved"
	ApprovalStatusRejected        ApprovalStatus = "rejected"
)

var validApprovalStatuses = []ApprovalStatus{
	ApprovalStatusNone,
	ApprovalStatusPendingApproval,
	ApprovalStatusApproved,
	ApprovalStatusRejected,
}

// String implements fmt.Stringer.
func (a ApprovalStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalStatus.
func (a ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsDecided reports whether an admin has already ruled on the payment.
func (a ApprovalStatus) IsDecided() bool {
	return a == ApprovalStatusApproved || a == ApprovalStatusRejected
}

// ParseApprovalStatus converts raw input into an ApprovalStatus.
func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}
