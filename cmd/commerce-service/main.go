package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/app"
	"github.com/vladislavdragonenkov/commerce/internal/version"
)

// Переменные окружения, которыми можно переопределить app.DefaultConfig().
const (
	envMetricsAddr         = "COMMERCE_METRICS_ADDR"
	envStorageDriver       = "COMMERCE_STORAGE_DRIVER"
	envPostgresDSN         = "COMMERCE_POSTGRES_DSN"
	envPostgresAutoMigrate = "COMMERCE_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envConsumerGroup       = "COMMERCE_CONSUMER_GROUP"
	envOutboxPollInterval  = "COMMERCE_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "COMMERCE_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "COMMERCE_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "COMMERCE_OUTBOX_RETRY_DELAY"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из окружения.
// Некорректные значения не прерывают запуск: остаётся default, а причина
// возвращается в списке предупреждений.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}

	driverExplicit := false
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
		driverExplicit = true
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
		// Заданный DSN без явного драйвера означает postgres.
		if !driverExplicit {
			cfg.StorageDriver = app.StorageDriverPostgres
		}
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envPostgresAutoMigrate, err))
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envConsumerGroup); ok {
		cfg.ConsumerGroup = v
	}

	if v, ok := lookupTrimmed(lookup, envOutboxPollInterval); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxPollInterval, err))
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxBatchSize); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxBatchSize, err))
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxMaxAttempts); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxMaxAttempts, err))
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envOutboxRetryDelay); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxRetryDelay, err))
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "0", "f", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d rejected: %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s rejected: %s", value, rule)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"build":          version.String(),
	}).Info("запускаем commerce service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("commerce service остановлен")
}
