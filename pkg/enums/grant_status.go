package enums

import "fmt"

// GrantStatus tracks a client tradeline grant after fulfillment.
type GrantStatus string

const (
	GrantStatusActive    GrantStatus = "active"
	GrantStatusCompleted GrantStatus = "completed"
	GrantStatusCancelled GrantStatus = "cancelled"
)

var validGrantStatuses = []GrantStatus{
	GrantStatusActive,
	GrantStatusCompleted,
	GrantStatusCancelled,
}

// String implements fmt.Stringer.
func (g GrantStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GrantStatus.
func (g GrantStatus) IsValid() bool {
	for _, candidate := range validGrantStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGrantStatus converts raw input into a GrantStatus.
func ParseGrantStatus(value string) (GrantStatus, error) {
	for _, candidate := range validGrantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grant status %q", value)
}
