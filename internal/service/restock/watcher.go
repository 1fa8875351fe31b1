package restock

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
)

var (
	restockSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_restock_signals_total",
		Help: "Total number of restock signals emitted by the watcher.",
	})
	restockCheckErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_restock_check_errors_total",
		Help: "Total number of failed restock checks.",
	})
)

// SignalPublisher публикует сигнал пополнения.
type SignalPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Watcher слушает события товаров и сигнализирует о необходимости пополнения.
// Решение принимается по свежему чтению товара, а не по payload события:
// событие могло устареть к моменту обработки.
type Watcher struct {
	products  domain.ProductRepository
	publisher SignalPublisher
	logger    *log.Entry
}

// NewWatcher создаёт watcher порога пополнения.
func NewWatcher(products domain.ProductRepository, publisher SignalPublisher, logger *log.Entry) *Watcher {
	if logger == nil {
		logger = log.WithField("component", "restock-watcher")
	}
	return &Watcher{
		products:  products,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleMessage — обработчик для kafka.Consumer на topic событий товаров.
func (w *Watcher) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := kafka.ParseEnvelope(message)
	if err != nil {
		return err
	}
	if envelope.AggregateType != domain.AggregateTypeProduct {
		return nil
	}

	// Порог имеет смысл проверять только после списаний.
	if envelope.EventType != domain.EventProductStockDebited {
		return nil
	}

	return w.Check(ctx, envelope.AggregateID)
}

// Check перечитывает товар и публикует сигнал, если остаток на пороге или ниже.
func (w *Watcher) Check(_ context.Context, productID string) error {
	product, err := w.products.Get(productID)
	if err != nil {
		restockCheckErrors.Inc()
		return fmt.Errorf("restock check for %s: %w", productID, err)
	}

	if !product.NeedsRestock() {
		return nil
	}

	w.logger.WithFields(log.Fields{
		"product_id":        product.ID,
		"available":         product.Stock.Available,
		"restock_threshold": product.Stock.RestockThreshold,
	}).Warn("product stock at or below restock threshold")
	restockSignals.Inc()

	if w.publisher == nil {
		return nil
	}

	signal := kafka.RestockSignal{
		ProductID:        product.ID,
		Available:        product.Stock.Available,
		RestockThreshold: product.Stock.RestockThreshold,
		Occurred:         time.Now().UTC(),
	}
	if err := w.publisher.PublishEvent(kafka.TopicRestockRequested, product.ID, signal); err != nil {
		return fmt.Errorf("publish restock signal for %s: %w", product.ID, err)
	}

	return nil
}
