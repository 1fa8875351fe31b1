package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
// Мутации сериализуются мьютексом, поэтому условная запись Save атомарна
// относительно конкурентных мутаций того же товара.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый товар, если ID ещё не занят.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrProductVersionConflict
	}
	// Храним копию без несохранённых событий: они принадлежат вызывающей
	// стороне и не должны всплыть при следующем Get.
	stored := product
	stored.ClearEvents()
	r.items[product.ID] = stored
	return nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары каталога, ограничивая выборку limit (если >0).
func (r *productRepositoryInMemory) List(limit int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает товар, проверяя версию (optimistic locking).
func (r *productRepositoryInMemory) Save(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if current.Version != product.Version {
		return domain.ErrProductVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	product.Version++
	stored := product
	stored.ClearEvents()
	r.items[product.ID] = stored
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
