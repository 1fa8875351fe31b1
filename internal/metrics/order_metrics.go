package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	rejected    prometheus.Counter
	canceled    prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewOrderMetrics создаёт метрики жизненного цикла в default registry.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		created: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_orders_created_total",
			Help: "Total number of orders created",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_order_transitions_total",
			Help: "Total number of successful order status transitions grouped by target status",
		}, []string{"to"}),
		rejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_order_transitions_rejected_total",
			Help: "Total number of order status transitions rejected by the state machine",
		}),
		canceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_orders_canceled_total",
			Help: "Total number of orders canceled",
		}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "commerce_order_op_duration_seconds",
			Help:    "Duration of order lifecycle operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// RecordCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordCreated() {
	m.created.Inc()
}

// RecordTransition фиксирует успешный переход в статус to.
func (m *OrderMetrics) RecordTransition(to string) {
	m.transitions.WithLabelValues(to).Inc()
}

// RecordRejected фиксирует переход, отклонённый таблицей переходов.
func (m *OrderMetrics) RecordRejected() {
	m.rejected.Inc()
}

// RecordCanceled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordCanceled() {
	m.canceled.Inc()
}

// RecordOpDuration записывает время выполнения операции жизненного цикла.
func (m *OrderMetrics) RecordOpDuration(op string, duration time.Duration) {
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}
