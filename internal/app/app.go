package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/commerce/internal/health"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/service/outbox"
	"github.com/vladislavdragonenkov/commerce/internal/service/restock"
	"github.com/vladislavdragonenkov/commerce/internal/version"
)

// Драйверы хранилища, которые понимает initRuntimeDependencies.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers  string
	ConsumerGroup string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает базовые настройки: in-memory хранилище,
// метрики на :9090, outbox с секундным polling.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		ConsumerGroup:       "commerce-restock",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}

// Run запускает фоновую обвязку сервиса: хранилище, HTTP-сервер метрик и
// health-проверок, outbox worker и restock watcher (если настроен Kafka).
// Блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if deps.closeFn != nil {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	var (
		workerCancel func()
		workerDone   chan struct{}
		consumer     *kafka.Consumer
	)
	if producer != nil {
		worker := outbox.NewWorker(deps.outboxRepo, kafka.NewOutboxPublisher(producer),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)

		workerCtx, cancel := context.WithCancel(ctx)
		workerCancel = cancel
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			worker.Run(workerCtx)
		}()

		watcher := restock.NewWatcher(deps.products, producer, logger.WithField("component", "restock"))
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		consumer, err = kafka.NewConsumerWithDLQ(
			brokers,
			cfg.ConsumerGroup,
			[]string{kafka.TopicProductEvents},
			watcher.HandleMessage,
			producer,
			cfg.OutboxMaxAttempts,
		)
		if err != nil {
			logger.WithError(err).Warn("failed to create restock consumer, continuing without it")
			consumer = nil
		} else {
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.WithError(err).Warn("restock consumer stopped with error")
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем фоновые процессы")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop restock consumer")
		}
	}
	shutdownOutboxWorker(workerCancel, workerDone, logger)
	closeKafka(producer, logger)
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// shutdownOutboxWorker останавливает outbox worker и ждёт завершения цикла.
func shutdownOutboxWorker(cancel func(), done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker did not stop in time")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
