package domain

import "time"

// Имена типов доменных событий. Попадают в outbox и наружу в брокер.
const (
	EventProductCreated          = "ProductCreated"
	EventProductStockDebited     = "ProductStockDebited"
	EventProductStockReplenished = "ProductStockReplenished"
	EventOrderCreated            = "OrderCreated"
	EventOrderStatusChanged      = "OrderStatusChanged"
	EventOrderCanceled           = "OrderCanceled"
)

// Типы агрегатов для маршрутизации событий в outbox.
const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// Event — доменное событие, накопленное агрегатом до сохранения.
// Персистентность событий (outbox, брокер) — забота внешних компонентов.
type Event interface {
	// EventType возвращает имя типа события.
	EventType() string
	// AggregateID возвращает идентификатор агрегата-источника.
	AggregateID() string
	// OccurredAt возвращает момент возникновения события.
	OccurredAt() time.Time
}

// ProductCreated фиксирует создание товара в каталоге.
type ProductCreated struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Available int32     `json:"available"`
	Occurred  time.Time `json:"occurred_at"`
}

func (e ProductCreated) EventType() string     { return EventProductCreated }
func (e ProductCreated) AggregateID() string   { return e.ProductID }
func (e ProductCreated) OccurredAt() time.Time { return e.Occurred }

// ProductStockDebited фиксирует успешное списание остатка.
type ProductStockDebited struct {
	ProductID    string    `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	NewAvailable int32     `json:"new_available"`
	Occurred     time.Time `json:"occurred_at"`
}

func (e ProductStockDebited) EventType() string     { return EventProductStockDebited }
func (e ProductStockDebited) AggregateID() string   { return e.ProductID }
func (e ProductStockDebited) OccurredAt() time.Time { return e.Occurred }

// ProductStockReplenished фиксирует успешное пополнение остатка.
type ProductStockReplenished struct {
	ProductID    string    `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	NewAvailable int32     `json:"new_available"`
	Occurred     time.Time `json:"occurred_at"`
}

func (e ProductStockReplenished) EventType() string     { return EventProductStockReplenished }
func (e ProductStockReplenished) AggregateID() string   { return e.ProductID }
func (e ProductStockReplenished) OccurredAt() time.Time { return e.Occurred }

// OrderCreated фиксирует создание заказа после успешного резервирования.
type OrderCreated struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	Qty        int32     `json:"qty"`
	Occurred   time.Time `json:"occurred_at"`
}

func (e OrderCreated) EventType() string     { return EventOrderCreated }
func (e OrderCreated) AggregateID() string   { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time { return e.Occurred }

// OrderStatusChanged фиксирует разрешённый переход статуса заказа.
type OrderStatusChanged struct {
	OrderID  string      `json:"order_id"`
	From     OrderStatus `json:"from"`
	To       OrderStatus `json:"to"`
	Occurred time.Time   `json:"occurred_at"`
}

func (e OrderStatusChanged) EventType() string     { return EventOrderStatusChanged }
func (e OrderStatusChanged) AggregateID() string   { return e.OrderID }
func (e OrderStatusChanged) OccurredAt() time.Time { return e.Occurred }

// OrderCanceled фиксирует отмену заказа и её инициатора.
type OrderCanceled struct {
	OrderID  string    `json:"order_id"`
	Actor    string    `json:"actor,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

func (e OrderCanceled) EventType() string     { return EventOrderCanceled }
func (e OrderCanceled) AggregateID() string   { return e.OrderID }
func (e OrderCanceled) OccurredAt() time.Time { return e.Occurred }
