package domain

import "time"

// InventoryService описывает операции координатора резервов,
// которые нужны жизненному циклу заказа.
type InventoryService interface {
	// Reserve резервирует qty единиц товара под заказ.
	Reserve(productID string, qty int32) error
	// Release возвращает qty единиц на склад (компенсация при отмене).
	Release(productID string, qty int32) error
	// Finalize закрывает резерв без возврата стока (заказ доставлен).
	Finalize(productID string, qty int32)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// StatusHistoryRepository хранит аудит переходов статуса заказа.
type StatusHistoryRepository interface {
	Append(change StatusChange) error
	List(orderID string) ([]StatusChange, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
