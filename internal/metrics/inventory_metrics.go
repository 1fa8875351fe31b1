package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics содержит метрики координатора резервов.
type InventoryMetrics struct {
	// Счётчики операций по результату
	reserveOps   *prometheus.CounterVec
	releaseOps   *prometheus.CounterVec
	replenishOps *prometheus.CounterVec
	debitOps     *prometheus.CounterVec

	// Конфликты версий и повторы
	versionConflicts prometheus.Counter
	// Аномалии кэша резервов (уход счётчика ниже нуля)
	ledgerUnderflow prometheus.Counter

	// Гистограмма времени выполнения по операциям
	opDuration *prometheus.HistogramVec

	// Gauge активных резервов (сумма по ledger)
	reservedUnits prometheus.Gauge
}

// NewInventoryMetrics создаёт метрики координатора в default registry.
func NewInventoryMetrics() *InventoryMetrics {
	return newInventoryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newInventoryMetricsWithRegisterer(registerer prometheus.Registerer) *InventoryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &InventoryMetrics{
		reserveOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_reserve_total",
			Help: "Total number of stock reserve attempts grouped by result",
		}, []string{"result"}),
		releaseOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_release_total",
			Help: "Total number of stock release attempts grouped by result",
		}, []string{"result"}),
		replenishOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_replenish_total",
			Help: "Total number of stock replenish attempts grouped by result",
		}, []string{"result"}),
		debitOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_debit_total",
			Help: "Total number of direct stock debit attempts grouped by result",
		}, []string{"result"}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_version_conflicts_total",
			Help: "Total number of optimistic lock conflicts during stock mutations",
		}),
		ledgerUnderflow: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_ledger_underflow_total",
			Help: "Total number of reservation ledger decrements clamped at zero",
		}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "commerce_inventory_op_duration_seconds",
			Help:    "Duration of inventory coordinator operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		reservedUnits: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "commerce_inventory_reserved_units",
			Help: "Current number of units held by active reservations (ledger view)",
		}),
	}
}

// RecordReserve фиксирует результат резервирования.
func (m *InventoryMetrics) RecordReserve(result string) {
	m.reserveOps.WithLabelValues(result).Inc()
}

// RecordRelease фиксирует результат снятия резерва.
func (m *InventoryMetrics) RecordRelease(result string) {
	m.releaseOps.WithLabelValues(result).Inc()
}

// RecordReplenish фиксирует результат пополнения.
func (m *InventoryMetrics) RecordReplenish(result string) {
	m.replenishOps.WithLabelValues(result).Inc()
}

// RecordDebit фиксирует результат прямого списания.
func (m *InventoryMetrics) RecordDebit(result string) {
	m.debitOps.WithLabelValues(result).Inc()
}

// RecordVersionConflict фиксирует конфликт optimistic locking.
func (m *InventoryMetrics) RecordVersionConflict() {
	m.versionConflicts.Inc()
}

// RecordLedgerUnderflow фиксирует срез счётчика резервов ниже нуля.
func (m *InventoryMetrics) RecordLedgerUnderflow() {
	m.ledgerUnderflow.Inc()
}

// RecordOpDuration записывает время выполнения операции координатора.
func (m *InventoryMetrics) RecordOpDuration(op string, duration time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// AddReservedUnits двигает gauge активных резервов на delta единиц.
func (m *InventoryMetrics) AddReservedUnits(delta int32) {
	m.reservedUnits.Add(float64(delta))
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// Результаты операций для label result.
const (
	ResultOK           = "ok"
	ResultInsufficient = "insufficient_stock"
	ResultThreshold    = "max_threshold_reached"
	ResultConflict     = "version_conflict"
	ResultError        = "error"
)
