package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "urbanfood.order.events"
	TopicReviewEvents    = "urbanfood.review.events"
	TopicDeadLetterQueue = "urbanfood.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderMessageID     = "x-message-id"

	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// Envelope: формат сообщения, которое outbox публикует в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// TopicFor выбирает topic по типу агрегата.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case domain.AggregateReview:
		return TopicReviewEvents
	default:
		return TopicOrderEvents
	}
}

// ParseEnvelope парсит Envelope из сообщения
func ParseEnvelope(message *sarama.ConsumerMessage) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return &env, nil
}

// ParseOrderPlaced извлекает payload order.placed из конверта.
func ParseOrderPlaced(env *Envelope) (*domain.OrderPlacedEvent, error) {
	if env.EventType != domain.EventOrderPlaced {
		return nil, fmt.Errorf("unexpected event type %q", env.EventType)
	}
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order.placed payload: %w", err)
	}
	return &event, nil
}

// OrderPlacedHandler превращает обработчик order.placed в MessageHandler.
// События других типов пропускаются.
func OrderPlacedHandler(fn func(ctx context.Context, event *domain.OrderPlacedEvent) error) MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		env, err := ParseEnvelope(message)
		if err != nil {
			return err
		}
		if env.EventType != domain.EventOrderPlaced {
			return nil
		}
		event, err := ParseOrderPlaced(env)
		if err != nil {
			return err
		}
		return fn(ctx, event)
	}
}
