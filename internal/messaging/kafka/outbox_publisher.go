package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka, выбирая topic
// по типу агрегата.
type OutboxTopicPublisher struct {
	producer *Producer
	route    func(aggregateType string) string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
// Пустой topic включает маршрутизацию TopicFor, иначе все события идут в topic.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	route := TopicFor
	if topic != "" {
		route = func(string) string { return topic }
	}
	return &OutboxTopicPublisher{producer: producer, route: route}
}

func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage(`null`)
	}

	return p.producer.PublishJSON(ctx, p.route(event.AggregateType), key, Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}, map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
		HeaderMessageID:     event.ID,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
