package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/client"
	"user-service/internal/util"
)

// Topics carrying domain events downstream.
const (
	TopicOTPSent        = "otp.sent"
	TopicUserRegistered = "user.registered"
	TopicUserLocked     = "user.locked"
	TopicStatusChanged  = "user.status_changed"
	TopicFollowerAdded  = "follower.added"
)

type envelope struct {
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes"`
}

// Publisher emits domain events to Kafka. A nil producer turns every
// publish into a no-op so the service runs without a broker.
type Publisher struct {
	producer *client.KafkaProducer
}

func NewPublisher(producer *client.KafkaProducer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish sends one event keyed by the given partition key. Failures are
// logged and returned; callers treat them as best effort.
func (p *Publisher) Publish(ctx context.Context, topic, key string, attributes map[string]string) error {
	if p.producer == nil {
		return nil
	}

	payload, err := json.Marshal(envelope{
		EventType:  topic,
		OccurredAt: time.Now().UTC(),
		Attributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	headers := map[string]string{"content-type": "application/json"}
	if err := p.producer.ProduceMessage(ctx, topic, []byte(key), payload, headers); err != nil {
		util.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	util.Debug("Event published", zap.String("topic", topic))
	return nil
}
