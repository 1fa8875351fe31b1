package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/inventory"
)

const defaultListLimit = 100

// Service — каталожные операции поверх репозитория товаров.
// Мутации стока делегируются координатору: дисциплина конкурентного
// доступа к остатку живёт в одном месте.
type Service struct {
	products    domain.ProductRepository
	coordinator *inventory.Coordinator
	outbox      domain.OutboxRepository
	logger      *log.Entry
}

// NewService создаёт каталожный сервис.
func NewService(
	products domain.ProductRepository,
	coordinator *inventory.Coordinator,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products:    products,
		coordinator: coordinator,
		outbox:      outbox,
		logger:      logger,
	}
}

// CreateProductParams — вход операции создания товара.
type CreateProductParams struct {
	ID          string
	Name        string
	Description string
	PriceMinor  int64
	Currency    string
	CategoryID  string
	SupplierID  string
	BrandID     string
	Status      domain.ProductStatus

	Available         int32
	RestockThreshold  int32
	MaxStockThreshold int32
}

// CreateProduct валидирует вход, создаёт агрегат и сохраняет его.
// Событие ProductCreated уходит в outbox только после успешного сохранения.
func (s *Service) CreateProduct(params CreateProductParams) (domain.Product, error) {
	stock, err := domain.NewStock(params.Available, params.RestockThreshold, params.MaxStockThreshold)
	if err != nil {
		return domain.Product{}, err
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	product, err := domain.NewProduct(id, params.Name, stock, params.Status,
		domain.WithDescription(params.Description),
		domain.WithPrice(params.PriceMinor, params.Currency),
		domain.WithCatalogRefs(params.CategoryID, params.SupplierID, params.BrandID),
	)
	if err != nil {
		return domain.Product{}, err
	}

	if err := s.products.Create(*product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.drainEvents(product)
	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"available":  product.Stock.Available,
	}).Info("product created")
	return *product, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(productID string) (domain.Product, error) {
	return s.products.Get(productID)
}

// ListProducts возвращает товары каталога.
func (s *Service) ListProducts(limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.products.List(limit)
}

// DebitStock списывает остаток товара (административная корректировка).
func (s *Service) DebitStock(productID string, qty int32) error {
	return s.coordinator.Debit(productID, qty)
}

// ReplenishStock пополняет остаток товара (приёмка).
func (s *Service) ReplenishStock(productID string, qty int32) error {
	return s.coordinator.Replenish(productID, qty)
}

// CheckAvailability — advisory-проверка наличия для витрины.
func (s *Service) CheckAvailability(productID string, qty int32) (bool, error) {
	return s.coordinator.CheckAvailability(productID, qty)
}

func (s *Service) drainEvents(product *domain.Product) {
	if s.outbox == nil {
		product.ClearEvents()
		return
	}
	for _, event := range product.UncommittedEvents() {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.WithError(err).WithField("event_type", event.EventType()).Error("marshal product event")
			continue
		}
		if _, err := s.outbox.Enqueue(domain.OutboxMessage{
			AggregateType: domain.AggregateTypeProduct,
			AggregateID:   event.AggregateID(),
			EventType:     event.EventType(),
			Payload:       payload,
		}); err != nil {
			s.logger.WithError(err).WithField("event_type", event.EventType()).Error("enqueue product event")
		}
	}
	product.ClearEvents()
}
