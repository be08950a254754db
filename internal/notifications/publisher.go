package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
)

// topicPublisher is the narrow publish surface the Publisher needs.
type topicPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// Topic adapts a Pub/Sub v2 publisher to topicPublisher, blocking until
// the server acknowledges the message.
type Topic struct {
	publisher *pubsub.Publisher
}

// NewTopic wraps a Pub/Sub publisher handle.
func NewTopic(publisher *pubsub.Publisher) (*Topic, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &Topic{publisher: publisher}, nil
}

func (t *Topic) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	result := t.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish settlement event: %w", err)
	}
	return nil
}

// Publisher emits settlement events after the owning transaction has
// committed. Every method logs and swallows its own failures: the
// payment state is already durable and a lost notification is repaired
// by support tooling, not by failing the request.
type Publisher struct {
	topic topicPublisher
	logg  *logger.Logger
}

// NewPublisher builds a settlement event publisher.
func NewPublisher(topic topicPublisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("settlement topic required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Publisher{topic: topic, logg: logg}, nil
}

func (p *Publisher) PaymentCompleted(ctx context.Context, req *models.PaymentRequest) {
	p.publish(ctx, EventPaymentCompleted, req, "")
}

func (p *Publisher) PaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string) {
	p.publish(ctx, EventPaymentFailed, req, reason)
}

func (p *Publisher) PaymentRejected(ctx context.Context, req *models.PaymentRequest, reason string) {
	p.publish(ctx, EventPaymentRejected, req, reason)
}

func (p *Publisher) PaymentExpired(ctx context.Context, req *models.PaymentRequest) {
	p.publish(ctx, EventPaymentExpired, req, "payment window elapsed")
}

func (p *Publisher) ManualPaymentSubmitted(ctx context.Context, req *models.PaymentRequest) {
	p.publish(ctx, EventManualSubmitted, req, "")
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, req *models.PaymentRequest, reason string) {
	if req == nil {
		return
	}
	logCtx := p.logg.WithPaymentID(ctx, req.ID.String())
	logCtx = p.logg.WithField(logCtx, "event_type", string(eventType))

	envelope := NewEnvelope(eventType, req, reason)
	data, err := json.Marshal(envelope)
	if err != nil {
		p.logg.Error(logCtx, "failed to encode settlement event", err)
		return
	}
	attributes := map[string]string{eventTypeAttribute: string(eventType)}
	if err := p.topic.Publish(ctx, data, attributes); err != nil {
		p.logg.Error(logCtx, "failed to publish settlement event", err)
		return
	}
	p.logg.Info(logCtx, "settlement event published")
}
