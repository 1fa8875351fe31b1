package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/service/inventory"
	"github.com/vladislavdragonenkov/commerce/internal/service/order"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

// Dependencies содержит собранный граф сервисов приложения.
// Используется во встраивающем коде и инструментах (loadtest, интеграционные
// сценарии), которым нужен рабочий core без внешней инфраструктуры.
type Dependencies struct {
	Products domain.ProductRepository
	Orders   domain.OrderRepository
	Outbox   domain.OutboxRepository
	History  domain.StatusHistoryRepository

	Ledger    *inventory.ReservationLedger
	Inventory *inventory.Coordinator
	Lifecycle *order.Lifecycle
	Catalog   *catalog.Service

	Logger *log.Entry
}

// NewDependencies собирает граф сервисов на in-memory хранилищах.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()
	outboxRepo := memory.NewOutboxRepository()
	history := memory.NewStatusHistoryRepository()

	ledger := inventory.NewReservationLedger()
	coordinator := inventory.NewCoordinator(products, outboxRepo, ledger, logger.WithField("component", "inventory"))
	lifecycle := order.NewLifecycle(orders, coordinator, outboxRepo, history, logger.WithField("component", "order-lifecycle"))
	catalogSvc := catalog.NewService(products, coordinator, outboxRepo, logger.WithField("component", "catalog"))

	return &Dependencies{
		Products:  products,
		Orders:    orders,
		Outbox:    outboxRepo,
		History:   history,
		Ledger:    ledger,
		Inventory: coordinator,
		Lifecycle: lifecycle,
		Catalog:   catalogSvc,
		Logger:    logger,
	}
}
