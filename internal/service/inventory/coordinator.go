package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

const (
	// Сколько раз повторяем цикл read-validate-write при конфликте версий.
	maxSaveAttempts = 3
	// Базовая задержка exponential backoff между попытками.
	conflictBaseDelay = 10 * time.Millisecond
)

// Coordinator оркестрирует резервирование против durable-агрегата товара
// и кэша резервов. Порядок жёсткий: сначала условная запись в хранилище,
// и только после её коммита — обновление ledger. Кэш никогда не участвует
// в решении о коммите.
type Coordinator struct {
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	ledger   *ReservationLedger
	logger   *log.Entry
	metrics  *metrics.InventoryMetrics
}

// NewCoordinator создаёт рабочий экземпляр координатора.
func NewCoordinator(
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	ledger *ReservationLedger,
	logger *log.Entry,
) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	if ledger == nil {
		ledger = NewReservationLedger()
	}
	return &Coordinator{
		products: products,
		outbox:   outbox,
		ledger:   ledger,
		logger:   logger,
		metrics:  metrics.NewInventoryMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	ledger *ReservationLedger,
	logger *log.Entry,
) *Coordinator {
	c := NewCoordinator(products, outbox, ledger, logger)
	c.metrics = nil
	return c
}

// Reserve резервирует qty единиц: durable-списание, затем инкремент ledger.
// При неудаче списания ledger не трогается вовсе.
func (c *Coordinator) Reserve(productID string, qty int32) error {
	start := time.Now()
	defer c.recordDuration("reserve", start)

	err := c.mutateProduct(productID, func(p *domain.Product) error {
		if p.Status == domain.ProductStatusDiscontinued {
			return domain.ErrProductDiscontinued
		}
		return p.DebitStock(qty)
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordReserve(reserveResult(err))
		}
		return err
	}

	reserved := c.ledger.Add(productID, qty)
	if c.metrics != nil {
		c.metrics.RecordReserve(metrics.ResultOK)
		c.metrics.AddReservedUnits(qty)
	}
	c.logger.WithFields(log.Fields{
		"product_id": productID,
		"qty":        qty,
		"reserved":   reserved,
	}).Debug("stock reserved")
	return nil
}

// Release возвращает qty единиц на склад и декрементирует ledger.
// Уход счётчика ниже нуля отсекается нулём и логируется как аномалия.
func (c *Coordinator) Release(productID string, qty int32) error {
	start := time.Now()
	defer c.recordDuration("release", start)

	err := c.mutateProduct(productID, func(p *domain.Product) error {
		return p.ReplenishStock(qty)
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRelease(reserveResult(err))
		}
		return err
	}

	removed, underflow := c.ledger.Sub(productID, qty)
	if underflow {
		c.logger.WithFields(log.Fields{
			"product_id": productID,
			"qty":        qty,
			"removed":    removed,
		}).Warn("reservation ledger underflow, clamped at zero")
		if c.metrics != nil {
			c.metrics.RecordLedgerUnderflow()
		}
	}
	if c.metrics != nil {
		c.metrics.RecordRelease(metrics.ResultOK)
		c.metrics.AddReservedUnits(-removed)
	}
	return nil
}

// Finalize закрывает резерв при доставке заказа: сток уже списан при
// резервировании, остаётся только снять счётчик из ledger.
func (c *Coordinator) Finalize(productID string, qty int32) {
	removed, underflow := c.ledger.Sub(productID, qty)
	if underflow {
		c.logger.WithFields(log.Fields{
			"product_id": productID,
			"qty":        qty,
			"removed":    removed,
		}).Warn("reservation ledger underflow on finalize, clamped at zero")
		if c.metrics != nil {
			c.metrics.RecordLedgerUnderflow()
		}
	}
	if c.metrics != nil {
		c.metrics.AddReservedUnits(-removed)
	}
}

// Debit списывает сток напрямую (административная корректировка), без ledger.
func (c *Coordinator) Debit(productID string, qty int32) error {
	start := time.Now()
	defer c.recordDuration("debit", start)

	err := c.mutateProduct(productID, func(p *domain.Product) error {
		return p.DebitStock(qty)
	})
	if c.metrics != nil {
		c.metrics.RecordDebit(reserveResult(err))
	}
	return err
}

// Replenish пополняет сток (приёмка товара), без ledger.
func (c *Coordinator) Replenish(productID string, qty int32) error {
	start := time.Now()
	defer c.recordDuration("replenish", start)

	err := c.mutateProduct(productID, func(p *domain.Product) error {
		return p.ReplenishStock(qty)
	})
	if c.metrics != nil {
		c.metrics.RecordReplenish(reserveResult(err))
	}
	return err
}

// Available возвращает доступный остаток из durable-записи.
// Ledger здесь не используется: для решений важна авторитетная величина.
func (c *Coordinator) Available(productID string) (int32, error) {
	product, err := c.products.Get(productID)
	if err != nil {
		return 0, err
	}
	return product.Stock.Available, nil
}

// CheckAvailability отвечает, хватает ли остатка под запрошенное количество.
// Advisory-проверка для UI: авторитетна только сама попытка резервирования,
// остаток может измениться между проверкой и резервом.
func (c *Coordinator) CheckAvailability(productID string, qty int32) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrQuantityInvalid
	}
	available, err := c.Available(productID)
	if err != nil {
		return false, err
	}
	return available >= qty, nil
}

// Reserved возвращает advisory-счётчик активных резервов из ledger.
// Это число активных резервов, а не «запас до максимального порога».
func (c *Coordinator) Reserved(productID string) int64 {
	return c.ledger.Reserved(productID)
}

// mutateProduct выполняет цикл read-validate-write с ограниченным числом
// повторов при конфликте версий. Бизнес-отказы мутации не повторяются.
func (c *Coordinator) mutateProduct(productID string, mutate func(*domain.Product) error) error {
	var lastErr error

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		product, err := c.products.Get(productID)
		if err != nil {
			return err
		}

		if err := mutate(&product); err != nil {
			return err
		}

		if err := c.products.Save(product); err != nil {
			if domain.IsVersionConflict(err) {
				lastErr = err
				if c.metrics != nil {
					c.metrics.RecordVersionConflict()
				}
				c.logger.WithFields(log.Fields{
					"product_id": productID,
					"attempt":    attempt + 1,
					"version":    product.Version,
				}).Warn("version conflict on stock mutation, retrying")
				time.Sleep(conflictBaseDelay << attempt)
				continue
			}
			return fmt.Errorf("save product: %w", err)
		}

		c.drainEvents(&product)
		return nil
	}

	return lastErr
}

// drainEvents переносит накопленные события агрегата в outbox после
// успешного сохранения. Отказ outbox не откатывает уже закоммиченную
// мутацию: событие теряется с ошибкой в логе, сток остаётся корректным.
func (c *Coordinator) drainEvents(product *domain.Product) {
	if c.outbox == nil {
		product.ClearEvents()
		return
	}

	for _, event := range product.UncommittedEvents() {
		payload, err := json.Marshal(event)
		if err != nil {
			c.logger.WithError(err).WithField("event_type", event.EventType()).Error("marshal domain event")
			continue
		}
		if _, err := c.outbox.Enqueue(domain.OutboxMessage{
			AggregateType: domain.AggregateTypeProduct,
			AggregateID:   event.AggregateID(),
			EventType:     event.EventType(),
			Payload:       payload,
		}); err != nil {
			c.logger.WithError(err).WithField("event_type", event.EventType()).Error("enqueue domain event")
		}
	}
	product.ClearEvents()
}

func (c *Coordinator) recordDuration(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordOpDuration(op, time.Since(start))
	}
}

// reserveResult маппит ошибку мутации в label для метрик.
func reserveResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsVersionConflict(err):
		return metrics.ResultConflict
	case errors.Is(err, domain.ErrInsufficientStock):
		return metrics.ResultInsufficient
	case errors.Is(err, domain.ErrMaxStockThresholdReached):
		return metrics.ResultThreshold
	default:
		return metrics.ResultError
	}
}

var _ domain.InventoryService = (*Coordinator)(nil)
