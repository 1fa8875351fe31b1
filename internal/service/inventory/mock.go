package inventory

import (
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Call фиксирует аргументы одного обращения к mock-сервису.
type Call struct {
	ProductID string
	Qty       int32
}

// MockService — конфигурируемая заглушка InventoryService для тестов.
type MockService struct {
	mu sync.Mutex

	ReserveErr error
	ReleaseErr error

	ReserveCalls  []Call
	ReleaseCalls  []Call
	FinalizeCalls []Call
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// Reserve возвращает заранее настроенную ошибку и записывает вызов.
func (m *MockService) Reserve(productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveCalls = append(m.ReserveCalls, Call{ProductID: productID, Qty: qty})
	return m.ReserveErr
}

// Release возвращает заранее настроенную ошибку и записывает вызов.
func (m *MockService) Release(productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls = append(m.ReleaseCalls, Call{ProductID: productID, Qty: qty})
	return m.ReleaseErr
}

// Finalize записывает вызов.
func (m *MockService) Finalize(productID string, qty int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinalizeCalls = append(m.FinalizeCalls, Call{ProductID: productID, Qty: qty})
}

var _ domain.InventoryService = (*MockService)(nil)
