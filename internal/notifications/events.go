// Package notifications publishes settlement events to Pub/Sub and, on
// the worker side, turns them into customer and operator emails. Both
// halves are fire-and-forget with respect to the payment flow: a failed
// publish or send never rolls back the transition that produced it.
package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
)

// EventType identifies a settlement event on the wire.
type EventType string

const (
	EventPaymentCompleted EventType = "settlement.payment_completed"
	EventPaymentFailed    EventType = "settlement.payment_failed"
	EventPaymentRejected  EventType = "settlement.payment_rejected"
	EventPaymentExpired   EventType = "settlement.payment_expired"
	EventManualSubmitted  EventType = "settlement.manual_submitted"
)

// eventTypeAttribute is the Pub/Sub message attribute carrying the type,
// so consumers can filter without decoding the body.
const eventTypeAttribute = "event_type"

// Envelope is the wire format for settlement events.
type Envelope struct {
	EventID    string       `json:"event_id"`
	Type       EventType    `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payment    EventPayment `json:"payment"`
}

// EventPayment is the payment request snapshot carried by an event.
// Money fields are decimal strings.
type EventPayment struct {
	RequestID     uuid.UUID           `json:"request_id"`
	CartID        uuid.UUID           `json:"cart_id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	Method        enums.PaymentMethod `json:"method"`
	Amount        string              `json:"amount"`
	Fees          string              `json:"fees"`
	Total         string              `json:"total"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id,omitempty"`
	IsManual      bool                `json:"is_manual,omitempty"`
	Reason        string              `json:"reason,omitempty"`
}

// NewEnvelope snapshots a payment request into a settlement event.
func NewEnvelope(eventType EventType, req *models.PaymentRequest, reason string) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payment: EventPayment{
			RequestID:     req.ID,
			CartID:        req.CartID,
			CustomerID:    req.CustomerID,
			CustomerEmail: req.CustomerEmail,
			Method:        req.Method,
			Amount:        req.Amount.StringFixed(2),
			Fees:          req.Fees.StringFixed(2),
			Total:         req.Total.StringFixed(2),
			Status:        req.Status,
			TransactionID: req.TransactionID,
			IsManual:      req.IsManual,
			Reason:        reason,
		},
	}
}
