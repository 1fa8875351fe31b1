package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// historyRepositoryInMemory хранит аудит переходов статусов в памяти.
type historyRepositoryInMemory struct {
	mu      sync.RWMutex
	changes map[string][]domain.StatusChange
}

// NewStatusHistoryRepository создаёт in-memory реализацию StatusHistoryRepository.
func NewStatusHistoryRepository() domain.StatusHistoryRepository {
	return &historyRepositoryInMemory{changes: make(map[string][]domain.StatusChange)}
}

// Append добавляет запись аудита.
func (r *historyRepositoryInMemory) Append(change domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.changes[change.OrderID] = append(r.changes[change.OrderID], change)

	sort.Slice(r.changes[change.OrderID], func(i, j int) bool {
		return r.changes[change.OrderID][i].Occurred.Before(r.changes[change.OrderID][j].Occurred)
	})

	return nil
}

// List возвращает записи аудита заказа в хронологическом порядке.
func (r *historyRepositoryInMemory) List(orderID string) ([]domain.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	changes := r.changes[orderID]
	result := make([]domain.StatusChange, len(changes))
	copy(result, changes)
	return result, nil
}

var _ domain.StatusHistoryRepository = (*historyRepositoryInMemory)(nil)
