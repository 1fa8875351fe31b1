package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

const (
	// Сколько раз повторяем сохранение заказа при конфликте версий.
	maxSaveAttempts = 3
	// Базовая задержка exponential backoff между попытками.
	conflictBaseDelay = 10 * time.Millisecond

	defaultListLimit = 100
)

// Lifecycle управляет жизненным циклом заказа: создание с резервированием,
// переходы по таблице статусов, отмена с компенсацией резерва.
type Lifecycle struct {
	orders    domain.OrderRepository
	inventory domain.InventoryService
	outbox    domain.OutboxRepository
	history   domain.StatusHistoryRepository
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// NewLifecycle создаёт рабочий экземпляр сервиса заказов.
func NewLifecycle(
	orders domain.OrderRepository,
	inventory domain.InventoryService,
	outbox domain.OutboxRepository,
	history domain.StatusHistoryRepository,
	logger *log.Entry,
) *Lifecycle {
	if logger == nil {
		logger = log.New().WithField("component", "order-lifecycle")
	}
	return &Lifecycle{
		orders:    orders,
		inventory: inventory,
		outbox:    outbox,
		history:   history,
		logger:    logger,
		metrics:   metrics.NewOrderMetrics(),
	}
}

// NewLifecycleWithoutMetrics создаёт сервис без метрик (для тестов).
func NewLifecycleWithoutMetrics(
	orders domain.OrderRepository,
	inventory domain.InventoryService,
	outbox domain.OutboxRepository,
	history domain.StatusHistoryRepository,
	logger *log.Entry,
) *Lifecycle {
	l := NewLifecycle(orders, inventory, outbox, history, logger)
	l.metrics = nil
	return l
}

// Create создаёт заказ в статусе pending, предварительно зарезервировав сток.
// Если резервирование не удалось, заказ не сохраняется и возвращается
// ErrStockUnavailable. Если не удалось сохранить заказ, резерв компенсируется.
func (l *Lifecycle) Create(customer domain.CustomerInfo, product domain.ProductInfo) (domain.Order, error) {
	start := time.Now()
	defer l.recordDuration("create", start)

	order, err := domain.NewOrder(uuid.NewString(), customer, product)
	if err != nil {
		return domain.Order{}, err
	}

	if err := l.inventory.Reserve(product.ProductID, product.Qty); err != nil {
		l.logger.WithError(err).WithFields(log.Fields{
			"product_id": product.ProductID,
			"qty":        product.Qty,
		}).Warn("reservation failed, order not created")
		if domain.IsBusinessError(err) {
			return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrStockUnavailable, err)
		}
		return domain.Order{}, err
	}

	if err := l.orders.Create(order); err != nil {
		// Компенсируем взятый резерв, иначе сток утечёт.
		if releaseErr := l.inventory.Release(product.ProductID, product.Qty); releaseErr != nil {
			l.logger.WithError(releaseErr).WithField("order_id", order.ID).Error("failed to release stock after create failure")
		}
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	l.appendHistory(order.ID, "", domain.OrderStatusPending, "system", "order created")
	l.emitEvent(domain.OrderCreated{
		OrderID:    order.ID,
		CustomerID: customer.ID,
		ProductID:  product.ProductID,
		Qty:        product.Qty,
		Occurred:   order.CreatedAt,
	})

	if l.metrics != nil {
		l.metrics.RecordCreated()
	}
	l.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": customer.ID,
		"product_id":  product.ProductID,
	}).Info("order created")
	return order, nil
}

// Transition переводит заказ в target по таблице переходов с optimistic
// locking и ограниченным числом повторов при конфликте версий.
// Достижение delivered закрывает резерв без возврата стока.
func (l *Lifecycle) Transition(orderID string, target domain.OrderStatus, actor string) (domain.Order, error) {
	start := time.Now()
	defer l.recordDuration("transition", start)

	order, from, err := l.transition(orderID, target, actor, "")
	if err != nil {
		return domain.Order{}, err
	}

	if target == domain.OrderStatusDelivered {
		l.inventory.Finalize(order.Product.ProductID, order.Product.Qty)
	}

	l.emitEvent(domain.OrderStatusChanged{
		OrderID:  order.ID,
		From:     from,
		To:       target,
		Occurred: order.UpdatedAt,
	})
	if l.metrics != nil {
		l.metrics.RecordTransition(string(target))
	}
	return order, nil
}

// Cancel отменяет заказ и возвращает сток. Разрешена только из статусов,
// из которых таблица допускает canceled; отмена отменённого или
// доставленного заказа завершается ErrInvalidTransition, а не no-op.
func (l *Lifecycle) Cancel(orderID, actor, reason string) (domain.Order, error) {
	start := time.Now()
	defer l.recordDuration("cancel", start)

	order, from, err := l.transition(orderID, domain.OrderStatusCanceled, actor, reason)
	if err != nil {
		return domain.Order{}, err
	}

	if err := l.inventory.Release(order.Product.ProductID, order.Product.Qty); err != nil {
		// Статус уже закоммичен: фиксируем ошибку, не откатывая отмену.
		l.logger.WithError(err).WithField("order_id", order.ID).Error("failed to release stock on cancel")
	}

	l.emitEvent(domain.OrderCanceled{
		OrderID:  order.ID,
		Actor:    actor,
		Reason:   reason,
		Occurred: order.UpdatedAt,
	})
	if l.metrics != nil {
		l.metrics.RecordCanceled()
		l.metrics.RecordTransition(string(domain.OrderStatusCanceled))
	}
	l.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     from,
		"actor":    actor,
	}).Info("order canceled")
	return order, nil
}

// Get возвращает заказ по идентификатору.
func (l *Lifecycle) Get(orderID string) (domain.Order, error) {
	return l.orders.Get(orderID)
}

// ListByCustomer возвращает заказы клиента (новые первыми).
func (l *Lifecycle) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return l.orders.ListByCustomer(customerID, limit)
}

// History возвращает аудит переходов статуса заказа.
func (l *Lifecycle) History(orderID string) ([]domain.StatusChange, error) {
	if l.history == nil {
		return nil, nil
	}
	return l.history.List(orderID)
}

// transition выполняет цикл read-validate-write для смены статуса.
// Возвращает сохранённый заказ и статус, из которого ушли.
func (l *Lifecycle) transition(orderID string, target domain.OrderStatus, actor, reason string) (domain.Order, domain.OrderStatus, error) {
	var lastErr error

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		order, err := l.orders.Get(orderID)
		if err != nil {
			return domain.Order{}, "", err
		}

		from := order.Status
		if err := order.Transition(target); err != nil {
			if l.metrics != nil {
				l.metrics.RecordRejected()
			}
			l.logger.WithFields(log.Fields{
				"order_id": orderID,
				"from":     from,
				"to":       target,
			}).Warn("transition rejected")
			return domain.Order{}, "", err
		}

		if err := l.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) {
				lastErr = err
				l.logger.WithFields(log.Fields{
					"order_id": orderID,
					"attempt":  attempt + 1,
				}).Warn("version conflict on order save, retrying")
				time.Sleep(conflictBaseDelay << attempt)
				continue
			}
			return domain.Order{}, "", fmt.Errorf("save order: %w", err)
		}

		l.appendHistory(orderID, from, target, actor, reason)
		return order, from, nil
	}

	return domain.Order{}, "", lastErr
}

func (l *Lifecycle) appendHistory(orderID string, from, to domain.OrderStatus, actor, reason string) {
	if l.history == nil {
		return
	}
	if err := l.history.Append(domain.StatusChange{
		OrderID:  orderID,
		From:     from,
		To:       to,
		Actor:    actor,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}); err != nil {
		l.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append status history")
	}
}

func (l *Lifecycle) emitEvent(event domain.Event) {
	if l.outbox == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		l.logger.WithError(err).WithField("event_type", event.EventType()).Error("marshal order event")
		return
	}
	if _, err := l.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   event.AggregateID(),
		EventType:     event.EventType(),
		Payload:       payload,
	}); err != nil {
		l.logger.WithError(err).WithField("event_type", event.EventType()).Error("enqueue order event")
	}
}

func (l *Lifecycle) recordDuration(op string, start time.Time) {
	if l.metrics != nil {
		l.metrics.RecordOpDuration(op, time.Since(start))
	}
}
