package enums

import "fmt"

// VerificationStatus tracks a payment verification record.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
)

// String implements fmt.Stringer.
func (v VerificationStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VerificationStatus.
func (v VerificationStatus) IsValid() bool {
	return v == VerificationStatusPending || v == VerificationStatusVerified
}

// VerificationMethod tags how a peer-to-peer payment gets verified.
type VerificationMethod string

const (
	VerificationMethodManual       VerificationMethod = "manual"
	VerificationMethodEmail        VerificationMethod = "email_confirmation"
	VerificationMethodScreenshot   VerificationMethod = "screenshot"
	VerificationMethodActivityFeed VerificationMethod = "activity_feed"
)

var validVerificationMethods = []VerificationMethod{
	VerificationMethodManual,
	VerificationMethodEmail,
	VerificationMethodScreenshot,
	VerificationMethodActivityFeed,
}

// String implements fmt.Stringer.
func (v VerificationMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VerificationMethod.
func (v VerificationMethod) IsValid() bool {
	for _, candidate := range validVerificationMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVerificationMethod converts raw input into a VerificationMethod.
func ParseVerificationMethod(value string) (VerificationMethod, error) {
	for _, candidate := range validVerificationMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification method %q", value)
}
