package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/mailer"
)

const (
	dedupeKeyPrefix = "rtl:notify:event:"
	dedupeTTL       = 24 * time.Hour
)

// dedupeStore marks events as processed so redelivered messages do not
// send duplicate emails.
type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// ConsumerParams configure the notify worker's event consumer.
type ConsumerParams struct {
	Subscription *pubsub.Subscriber
	Sender       mailer.Sender
	Dedupe       dedupeStore
	AdminEmail   string
	Logger       *logger.Logger
}

// Consumer turns settlement events into customer and operator emails.
type Consumer struct {
	subscription *pubsub.Subscriber
	sender       mailer.Sender
	dedupe       dedupeStore
	adminEmail   string
	logg         *logger.Logger
}

// NewConsumer builds a settlement notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("settlement subscription required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: params.Subscription,
		sender:       params.Sender,
		dedupe:       params.Dedupe,
		adminEmail:   params.AdminEmail,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := EventType(msg.Attributes[eventTypeAttribute])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !knownEventType(eventType) {
		c.logg.Info(logCtx, "skipping non-settlement event")
		return processResult{ack: true}
	}

	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode settlement event", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Warn(logCtx, "settlement event missing id")
		return processResult{ack: true}
	}
	logCtx = c.logg.WithPaymentID(logCtx, envelope.Payment.RequestID.String())

	dedupeKey := dedupeKeyPrefix + envelope.EventID
	fresh, err := c.dedupe.SetNX(ctx, dedupeKey, 1, dedupeTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	message, deliverable := renderEmail(envelope, c.adminEmail)
	if !deliverable {
		c.logg.Info(logCtx, "event has no recipient; dropping")
		return processResult{ack: true}
	}

	if err := c.sender.Send(ctx, message); err != nil {
		c.logg.Error(logCtx, "failed to send settlement email", err)
		// Release the dedupe mark so the redelivery retries the send.
		_ = c.dedupe.Del(ctx, dedupeKey)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "settlement email sent")
	return processResult{ack: true}
}

func knownEventType(eventType EventType) bool {
	switch eventType {
	case EventPaymentCompleted, EventPaymentFailed, EventPaymentRejected,
		EventPaymentExpired, EventManualSubmitted:
		return true
	}
	return false
}
