package payments

import (
	"fmt"
	"regexp"

	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
)

// Identifier patterns per peer-to-peer method. Keys are the identifier
// kinds a customer may submit; values are the format each kind must match.
var (
	cashtagPattern = regexp.MustCompile(`^\$[A-Za-z][A-Za-z0-9_]{0,19}$`)
	handlePattern  = regexp.MustCompile(`^@[A-Za-z0-9][A-Za-z0-9_-]{2,29}$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

var methodIdentifiers = map[enums.PaymentMethod]map[string]*regexp.Regexp{
	enums.PaymentMethodCashApp: {
		"cashtag": cashtagPattern,
	},
	enums.PaymentMethodVenmo: {
		"username": handlePattern,
		"phone":    phonePattern,
	},
	enums.PaymentMethodZelle: {
		"email": emailPattern,
		"phone": phonePattern,
	},
	enums.PaymentMethodAppleCash: {
		"phone": phonePattern,
	},
}

// ValidateIdentifiers checks user-supplied routing identifiers against
// the method's accepted kinds and format patterns. At least one
// identifier is required.
func ValidateIdentifiers(method enums.PaymentMethod, identifiers map[string]string) error {
	accepted, ok := methodIdentifiers[method]
	if !ok {
		return apperrors.Newf(apperrors.CodeValidation, "method %s does not take payment identifiers", method)
	}
	if len(identifiers) == 0 {
		return apperrors.Newf(apperrors.CodeValidation, "at least one payment identifier is required for %s", method)
	}

	var violations []string
	for kind, value := range identifiers {
		pattern, ok := accepted[kind]
		if !ok {
			violations = append(violations, fmt.Sprintf("%s does not accept a %q identifier", method, kind))
			continue
		}
		if !pattern.MatchString(value) {
			violations = append(violations, fmt.Sprintf("%q is not a valid %s %s", value, method, kind))
		}
	}
	if len(violations) > 0 {
		return apperrors.Newf(apperrors.CodeValidation, "invalid payment identifiers for %s", method).
			WithDetails(violations)
	}
	return nil
}
