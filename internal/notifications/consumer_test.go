package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rockettradeline/tradeline-backend/pkg/mailer"
)

type stubSender struct {
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeDedupe struct {
	seen map[string]bool
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{seen: map[string]bool{}}
}

func (f *fakeDedupe) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDedupe) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, sender mailer.Sender, dedupe dedupeStore) *Consumer {
	t.Helper()
	return &Consumer{
		sender:     sender,
		dedupe:     dedupe,
		adminEmail: "ops@rockettradeline.com",
		logg:       newPublisherLogger(),
	}
}

func eventMessage(t *testing.T, envelope Envelope) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{eventTypeAttribute: string(envelope.Type)},
	}
}

func TestConsumerSendsCompletionEmail(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, newFakeDedupe())

	envelope := NewEnvelope(EventPaymentCompleted, sampleRequest(), "")
	result := consumer.process(context.Background(), eventMessage(t, envelope))

	if !result.ack || result.nack {
		t.Fatalf("result = %+v, want ack", result)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "buyer@example.com" {
		t.Fatalf("recipient = %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Payment confirmed") {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "187.40") || !strings.Contains(msg.TextBody, "VENMO_ABC123") {
		t.Fatalf("body missing details: %q", msg.TextBody)
	}
}

func TestConsumerRoutesManualSubmissionsToOperators(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, newFakeDedupe())

	req := sampleRequest()
	req.IsManual = true
	envelope := NewEnvelope(EventManualSubmitted, req, "")
	result := consumer.process(context.Background(), eventMessage(t, envelope))

	if !result.ack {
		t.Fatalf("result = %+v, want ack", result)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "ops@rockettradeline.com" {
		t.Fatalf("recipient = %q, want operator address", sender.sent[0].To)
	}
	if !strings.Contains(sender.sent[0].TextBody, req.ID.String()) {
		t.Fatalf("body missing request id: %q", sender.sent[0].TextBody)
	}
}

func TestConsumerDropsDuplicateEvents(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, newFakeDedupe())

	envelope := NewEnvelope(EventPaymentCompleted, sampleRequest(), "")
	msg := eventMessage(t, envelope)

	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)

	if !first.ack || !second.ack {
		t.Fatalf("both deliveries should ack, got %+v and %+v", first, second)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1 across redeliveries", len(sender.sent))
	}
}

func TestConsumerNacksSendFailureAndReleasesDedupe(t *testing.T) {
	sender := &stubSender{err: errors.New("sendgrid 500")}
	dedupe := newFakeDedupe()
	consumer := newTestConsumer(t, sender, dedupe)

	envelope := NewEnvelope(EventPaymentFailed, sampleRequest(), "confirmation missing order id")
	msg := eventMessage(t, envelope)

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("result = %+v, want nack", result)
	}

	// Redelivery after the transient failure must retry the send.
	sender.err = nil
	retry := consumer.process(context.Background(), msg)
	if !retry.ack {
		t.Fatalf("retry result = %+v, want ack", retry)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].TextBody, "confirmation missing order id") {
		t.Fatalf("failure reason missing from body: %q", sender.sent[0].TextBody)
	}
}

func TestConsumerSkipsUnknownAndMalformedEvents(t *testing.T) {
	sender := &stubSender{}
	consumer := newTestConsumer(t, sender, newFakeDedupe())

	unknown := &pubsub.Message{Attributes: map[string]string{eventTypeAttribute: "billing.invoice_paid"}}
	if result := consumer.process(context.Background(), unknown); !result.ack {
		t.Fatalf("unknown event should ack, got %+v", result)
	}

	malformed := &pubsub.Message{
		Data:       []byte("{not json"),
		Attributes: map[string]string{eventTypeAttribute: string(EventPaymentCompleted)},
	}
	if result := consumer.process(context.Background(), malformed); !result.ack {
		t.Fatalf("malformed event should ack, got %+v", result)
	}

	noRecipient := NewEnvelope(EventPaymentExpired, sampleRequest(), "")
	noRecipient.Payment.CustomerEmail = ""
	if result := consumer.process(context.Background(), eventMessage(t, noRecipient)); !result.ack {
		t.Fatalf("event without recipient should ack, got %+v", result)
	}

	if len(sender.sent) != 0 {
		t.Fatalf("emails sent = %d, want 0", len(sender.sent))
	}
}
