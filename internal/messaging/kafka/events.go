package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Topics для Kafka
const (
	TopicProductEvents    = "commerce.product.events"
	TopicOrderEvents      = "commerce.order.events"
	TopicRestockRequested = "commerce.restock.requested"
	TopicDeadLetterQueue  = "commerce.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// EventEnvelope — конверт, в котором outbox-сообщения уходят в Kafka.
// Payload несёт исходное доменное событие как есть.
type EventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// RestockSignal публикуется, когда остаток товара опустился до порога пополнения.
type RestockSignal struct {
	ProductID        string    `json:"product_id"`
	Available        int32     `json:"available"`
	RestockThreshold int32     `json:"restock_threshold"`
	Occurred         time.Time `json:"occurred"`
}

// ParseEnvelope парсит EventEnvelope из сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (*EventEnvelope, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	return &envelope, nil
}
