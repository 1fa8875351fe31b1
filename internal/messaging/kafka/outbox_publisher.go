package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka,
// выбирая topic по типу агрегата.
type OutboxTopicPublisher struct {
	producer      *Producer
	productTopic  string
	orderTopic    string
	fallbackTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer:      producer,
		productTopic:  TopicProductEvents,
		orderTopic:    TopicOrderEvents,
		fallbackTopic: TopicOrderEvents,
	}
}

// NewDLQPublisher создаёт паблишер, направляющий все сообщения в DLQ-топик.
// Используется outbox worker-ом после исчерпания попыток публикации.
func NewDLQPublisher(producer *Producer) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer:      producer,
		productTopic:  TopicDeadLetterQueue,
		orderTopic:    TopicDeadLetterQueue,
		fallbackTopic: TopicDeadLetterQueue,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	// Ключ — идентификатор агрегата, чтобы события одного агрегата
	// попадали в одну партицию и сохраняли порядок.
	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := EventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event.AggregateType), key, envelope)
}

func (p *OutboxTopicPublisher) topicFor(aggregateType string) string {
	switch aggregateType {
	case domain.AggregateTypeProduct:
		return p.productTopic
	case domain.AggregateTypeOrder:
		return p.orderTopic
	default:
		return p.fallbackTopic
	}
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
