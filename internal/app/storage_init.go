package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/commerce/internal/health"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/postgres"
)

// runtimeDependencies — хранилища, выбранные по конфигурации запуска.
type runtimeDependencies struct {
	products    domain.ProductRepository
	orders      domain.OrderRepository
	outboxRepo  domain.OutboxRepository
	historyRepo domain.StatusHistoryRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies выбирает и инициализирует хранилище.
// Пустой драйвер трактуется как memory.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return runtimeDependencies{
			products:    memory.NewProductRepository(),
			orders:      memory.NewOrderRepository(),
			outboxRepo:  memory.NewOutboxRepository(),
			historyRepo: memory.NewStatusHistoryRepository(),
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres store: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("ensure postgres schema: %w", err)
			}
		}

		logger.Info("using postgres storage")
		return runtimeDependencies{
			products:    postgres.NewProductRepository(store),
			orders:      postgres.NewOrderRepository(store),
			outboxRepo:  postgres.NewOutboxRepository(store),
			historyRepo: postgres.NewStatusHistoryRepository(store),
			storageChecker: healthcheck.NewSimpleChecker("postgres", func() error {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return store.Ping(pingCtx)
			}),
			closeFn: store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
