package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/app"
	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
)

// Нагрузочный прогон ядра без внешней инфраструктуры: сервисы собираются
// на in-memory хранилищах, сценарии гоняются конкурентно, в конце
// сверяется учёт стока против ledger.

type loadMode string

const (
	modeReserve     loadMode = "reserve"
	modeOrder       loadMode = "order"
	modeOrderCancel loadMode = "order-cancel"
)

const (
	resultOK   = "ok"
	resultBusy = "stock_unavailable"
	resultErr  = "error"
)

type config struct {
	products    int
	stock       int
	total       int
	concurrency int
	qty         int
	mode        loadMode
	cancelRate  int
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Results   map[string]int64 `json:"results"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time               `json:"started_at"`
	DurationSeconds  float64                 `json:"duration_seconds"`
	TotalScenarios   int64                   `json:"total_scenarios"`
	SuccessScenarios int64                   `json:"success_scenarios"`
	FailedScenarios  int64                   `json:"failed_scenarios"`
	ErrorRate        float64                 `json:"error_rate"`
	RPS              float64                 `json:"rps"`
	Methods          map[string]methodReport `json:"methods"`
	Consistent       bool                    `json:"consistent"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	results   map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
	}
}

func (c *collector) record(method string, latency time.Duration, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{
			results: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if result == resultOK {
		stats.success++
	} else {
		stats.failed++
	}
	stats.results[result]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt,
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	for name, stats := range c.methods {
		resultsCopy := make(map[string]int64, len(stats.results))
		for key, count := range stats.results {
			resultsCopy[key] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Results:   resultsCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var (
		cfg     config
		modeRaw string
	)

	flag.IntVar(&cfg.products, "products", 4, "number of products to seed")
	flag.IntVar(&cfg.stock, "stock", 1000, "initial stock per product")
	flag.IntVar(&cfg.total, "total", 500, "total scenarios to run")
	flag.IntVar(&cfg.concurrency, "concurrency", 16, "number of concurrent workers")
	flag.IntVar(&cfg.qty, "qty", 1, "quantity per reservation/order")
	flag.StringVar(&modeRaw, "mode", string(modeOrder), "scenario mode: reserve|order|order-cancel")
	flag.IntVar(&cfg.cancelRate, "cancel-rate", 10, "percent of scenarios to cancel in order-cancel mode")
	flag.StringVar(&cfg.outputPath, "output", "", "path for JSON report (optional)")
	flag.Parse()

	mode, err := parseMode(modeRaw)
	if err != nil {
		return config{}, err
	}
	cfg.mode = mode

	if cfg.products <= 0 {
		return config{}, fmt.Errorf("products must be > 0")
	}
	if cfg.stock <= 0 {
		return config{}, fmt.Errorf("stock must be > 0")
	}
	if cfg.total <= 0 {
		return config{}, fmt.Errorf("total must be > 0")
	}
	if cfg.concurrency <= 0 {
		return config{}, fmt.Errorf("concurrency must be > 0")
	}
	if cfg.qty <= 0 {
		return config{}, fmt.Errorf("qty must be > 0")
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		return config{}, fmt.Errorf("cancel-rate must be in [0, 100]")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.ToLower(strings.TrimSpace(value))) {
	case modeReserve:
		return modeReserve, nil
	case modeOrder:
		return modeOrder, nil
	case modeOrderCancel:
		return modeOrderCancel, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	cfg, err := parseConfig()
	if err != nil {
		fail("%v", err)
	}

	deps := app.NewDependencies(log.WithField("component", "loadtest"))
	productIDs, err := seedProducts(deps, cfg)
	if err != nil {
		fail("seed products: %v", err)
	}

	stats := newCollector()
	startedAt := time.Now()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < cfg.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				runScenario(deps, cfg, productIDs, index, stats)
			}
		}()
	}

	for i := 0; i < cfg.total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	duration := time.Since(startedAt)
	result := stats.buildReport(startedAt, duration)
	result.TotalScenarios = int64(cfg.total)
	for _, method := range []string{"reserve", "create", "deliver", "cancel"} {
		if m, ok := result.Methods[method]; ok {
			result.SuccessScenarios += m.Success
		}
	}
	result.FailedScenarios = result.TotalScenarios - result.SuccessScenarios
	if result.FailedScenarios < 0 {
		result.FailedScenarios = 0
	}
	result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	result.RPS = float64(cfg.total) / duration.Seconds()
	result.Consistent = verifyConsistency(deps, cfg, productIDs)

	printReport(result, cfg)

	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			fail("write report: %v", err)
		}
	}

	if !result.Consistent {
		fail("stock accounting is inconsistent after load run")
	}
}

func seedProducts(deps *app.Dependencies, cfg config) ([]string, error) {
	ids := make([]string, 0, cfg.products)
	for i := 0; i < cfg.products; i++ {
		product, err := deps.Catalog.CreateProduct(catalogParams(i, cfg))
		if err != nil {
			return nil, err
		}
		ids = append(ids, product.ID)
	}
	return ids, nil
}

func catalogParams(index int, cfg config) catalog.CreateProductParams {
	return catalog.CreateProductParams{
		ID:                fmt.Sprintf("load-prod-%d", index),
		Name:              fmt.Sprintf("load product %d", index),
		PriceMinor:        1000,
		Currency:          "USD",
		Status:            domain.ProductStatusAvailable,
		Available:         int32(cfg.stock),
		RestockThreshold:  0,
		MaxStockThreshold: int32(cfg.stock) * 2,
	}
}

// runScenario прогоняет один сценарий против ядра.
func runScenario(deps *app.Dependencies, cfg config, productIDs []string, index int, stats *collector) {
	productID := productIDs[index%len(productIDs)]
	qty := int32(cfg.qty)

	switch cfg.mode {
	case modeReserve:
		started := time.Now()
		err := deps.Inventory.Reserve(productID, qty)
		stats.record("reserve", time.Since(started), classify(err))
		if err != nil {
			return
		}

		started = time.Now()
		err = deps.Inventory.Release(productID, qty)
		stats.record("release", time.Since(started), classify(err))

	case modeOrder, modeOrderCancel:
		started := time.Now()
		order, err := deps.Lifecycle.Create(
			domain.CustomerInfo{ID: fmt.Sprintf("load-customer-%d", index%8), Name: "load customer"},
			domain.ProductInfo{ProductID: productID, Name: "load product", Qty: qty, PriceMinor: 1000, Currency: "USD"},
		)
		stats.record("create", time.Since(started), classify(err))
		if err != nil {
			return
		}

		if cfg.mode == modeOrderCancel && shouldCancelScenario(index, cfg.cancelRate) {
			started = time.Now()
			_, err = deps.Lifecycle.Cancel(order.ID, "loadtest", "scenario cancel")
			stats.record("cancel", time.Since(started), classify(err))
			return
		}

		started = time.Now()
		err = deliverOrder(deps, order.ID)
		stats.record("deliver", time.Since(started), classify(err))
	}
}

func deliverOrder(deps *app.Dependencies, orderID string) error {
	for _, target := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	} {
		if _, err := deps.Lifecycle.Transition(orderID, target, "loadtest"); err != nil {
			return err
		}
	}
	return nil
}

// verifyConsistency сверяет сток и ledger после прогона: завершённые
// сценарии не должны оставлять активных резервов, а суммарное списание
// обязано сходиться с числом доставленных заказов.
func verifyConsistency(deps *app.Dependencies, cfg config, productIDs []string) bool {
	consistent := true
	for _, productID := range productIDs {
		available, err := deps.Inventory.Available(productID)
		if err != nil {
			log.WithError(err).WithField("product_id", productID).Error("availability check failed")
			consistent = false
			continue
		}
		if available < 0 || available > int32(cfg.stock)*2 {
			log.WithFields(log.Fields{
				"product_id": productID,
				"available":  available,
			}).Error("available out of bounds")
			consistent = false
		}
		if reserved := deps.Inventory.Reserved(productID); reserved != 0 {
			log.WithFields(log.Fields{
				"product_id": productID,
				"reserved":   reserved,
			}).Error("ledger must be empty after completed scenarios")
			consistent = false
		}
	}
	return consistent
}

func classify(err error) string {
	switch {
	case err == nil:
		return resultOK
	case domain.IsBusinessError(err):
		return resultBusy
	default:
		return resultErr
	}
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func writeJSONReport(path string, result report) error {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}

func printReport(result report, cfg config) {
	fmt.Printf("mode=%s products=%d stock=%d total=%d concurrency=%d\n",
		cfg.mode, cfg.products, cfg.stock, cfg.total, cfg.concurrency)
	fmt.Printf("scenarios: total=%d success=%d failed=%d error_rate=%.4f rps=%.1f consistent=%v\n",
		result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios,
		result.ErrorRate, result.RPS, result.Consistent)

	methods := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)

	for _, name := range methods {
		m := result.Methods[name]
		fmt.Printf("  %-8s calls=%d success=%d failed=%d p50=%.2fms p95=%.2fms p99=%.2fms\n",
			name, m.Calls, m.Success, m.Failed,
			m.LatencyMs.P50, m.LatencyMs.P95, m.LatencyMs.P99)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func ratio(failed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
