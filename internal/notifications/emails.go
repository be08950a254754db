package notifications

import (
	"fmt"
	"strings"

	"github.com/rockettradeline/tradeline-backend/pkg/mailer"
)

// renderEmail builds the outbound message for a settlement event. The
// returned recipient is empty when the event has nowhere to go (no
// customer email on file, or no operator address configured).
func renderEmail(envelope Envelope, adminEmail string) (mailer.Message, bool) {
	payment := envelope.Payment
	shortID := shortRequestID(payment.RequestID.String())
	method := methodLabel(string(payment.Method))

	switch envelope.Type {
	case EventPaymentCompleted:
		return mailer.Message{
			To:      payment.CustomerEmail,
			Subject: fmt.Sprintf("Payment confirmed — order %s", shortID),
			TextBody: fmt.Sprintf(
				"Your %s payment of %s has been confirmed.\n\n"+
					"Order reference: %s\nTransaction: %s\n\n"+
					"Your tradeline slots are now active. You can review them any time from your dashboard.",
				method, payment.Total, shortID, payment.TransactionID),
		}, payment.CustomerEmail != ""
	case EventPaymentFailed:
		return mailer.Message{
			To:      payment.CustomerEmail,
			Subject: fmt.Sprintf("Payment failed — order %s", shortID),
			TextBody: fmt.Sprintf(
				"Your %s payment of %s could not be processed.\n\nReason: %s\n\n"+
					"Your cart has not been charged. Please try again or choose a different payment method.",
				method, payment.Total, reasonOrDefault(payment.Reason)),
		}, payment.CustomerEmail != ""
	case EventPaymentRejected:
		return mailer.Message{
			To:      payment.CustomerEmail,
			Subject: fmt.Sprintf("Payment not accepted — order %s", shortID),
			TextBody: fmt.Sprintf(
				"Your manual payment submission for %s was reviewed and could not be accepted.\n\n"+
					"Reason: %s\n\n"+
					"If you believe this is a mistake, reply to this email with your proof of payment.",
				payment.Total, reasonOrDefault(payment.Reason)),
		}, payment.CustomerEmail != ""
	case EventPaymentExpired:
		return mailer.Message{
			To:      payment.CustomerEmail,
			Subject: fmt.Sprintf("Payment window expired — order %s", shortID),
			TextBody: fmt.Sprintf(
				"Your %s payment request for %s expired before a payment was received.\n\n"+
					"Your cart is still saved. Start a new checkout when you are ready.",
				method, payment.Total),
		}, payment.CustomerEmail != ""
	case EventManualSubmitted:
		return mailer.Message{
			To:      adminEmail,
			Subject: fmt.Sprintf("Manual payment awaiting review — %s", shortID),
			TextBody: fmt.Sprintf(
				"A manual payment needs approval.\n\n"+
					"Request: %s\nCart: %s\nAmount: %s\nMethod: %s\n\n"+
					"Review it in the admin payments queue.",
				payment.RequestID, payment.CartID, payment.Total, method),
		}, adminEmail != ""
	default:
		return mailer.Message{}, false
	}
}

func shortRequestID(id string) string {
	cleaned := strings.ReplaceAll(id, "-", "")
	if len(cleaned) > 12 {
		cleaned = cleaned[:12]
	}
	return strings.ToUpper(cleaned)
}

func methodLabel(method string) string {
	return strings.ReplaceAll(method, "_", " ")
}

func reasonOrDefault(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "not specified"
	}
	return reason
}
