package events

import (
	"context"
	"strconv"

	"hermes/internal/adapters/kafka"
	"hermes/pkg/logger"
)

// Publisher emits assistant events to Kafka. A nil Publisher is safe to use
// and drops events, so event publishing stays optional in deployments
// without a broker.
type Publisher struct {
	producer        *kafka.Producer
	escalationTopic string
	usageTopic      string
	log             *logger.Logger
}

// NewPublisher creates a new event publisher. Empty topic names fall
// back to the package defaults.
func NewPublisher(producer *kafka.Producer, escalationTopic, usageTopic string) *Publisher {
	if escalationTopic == "" {
		escalationTopic = TopicEscalations
	}
	if usageTopic == "" {
		usageTopic = TopicUsage
	}
	return &Publisher{
		producer:        producer,
		escalationTopic: escalationTopic,
		usageTopic:      usageTopic,
		log:             logger.Get().With("component", "events"),
	}
}

// PublishEscalation publishes a human-handoff event, keyed by chat so all
// escalations for one conversation stay ordered.
func (p *Publisher) PublishEscalation(ctx context.Context, event EscalationEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.escalationTopic, strconv.FormatInt(event.ChatID, 10), event)
}

// PublishUsage publishes a usage event.
func (p *Publisher) PublishUsage(ctx context.Context, event UsageEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.usageTopic, strconv.FormatInt(event.ChatID, 10), event)
}
