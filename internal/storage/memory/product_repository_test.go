package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func makeProduct(t *testing.T, id string, available int32) domain.Product {
	t.Helper()
	stock, err := domain.NewStock(available, 5, 1000)
	if err != nil {
		t.Fatalf("new stock: %v", err)
	}
	product, err := domain.NewProduct(id, "test product", stock, domain.ProductStatusAvailable)
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	return *product
}

func TestProductRepositoryCreateGet(t *testing.T) {
	repo := NewProductRepository()
	product := makeProduct(t, "prod-1", 10)

	if err := repo.Create(product); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(product); !errors.Is(err, domain.ErrProductVersionConflict) {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}

	stored, err := repo.Get("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Stock.Available != 10 {
		t.Fatalf("unexpected stock: %d", stored.Stock.Available)
	}
	// Несохранённые события не должны пережить запись.
	if got := len(stored.UncommittedEvents()); got != 0 {
		t.Fatalf("stored product must have no pending events, got %d", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepositorySave(t *testing.T) {
	repo := NewProductRepository()
	if err := repo.Create(makeProduct(t, "prod-1", 10)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	product, err := repo.Get("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := product.DebitStock(4); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := repo.Save(product); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Stock.Available != 6 {
		t.Fatalf("expected available 6, got %d", updated.Stock.Available)
	}
	if updated.Version != 1 {
		t.Fatalf("expected version 1, got %d", updated.Version)
	}

	// Повторный Save со старой версией должен отлететь с конфликтом.
	if err := repo.Save(product); !errors.Is(err, domain.ErrProductVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	missing := makeProduct(t, "missing", 1)
	if err := repo.Save(missing); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepositoryConcurrentSaveOneWins(t *testing.T) {
	repo := NewProductRepository()
	if err := repo.Create(makeProduct(t, "prod-1", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Оба читателя видят одну и ту же версию; закоммититься должен ровно один.
	first, _ := repo.Get("prod-1")
	second, _ := repo.Get("prod-1")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, p := range []domain.Product{first, second} {
		wg.Add(1)
		go func(product domain.Product) {
			defer wg.Done()
			if err := product.DebitStock(1); err != nil {
				results <- err
				return
			}
			results <- repo.Save(product)
		}(p)
	}
	wg.Wait()
	close(results)

	okCount, conflictCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			okCount++
		case domain.IsVersionConflict(err):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || conflictCount != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflicts=%d", okCount, conflictCount)
	}

	stored, _ := repo.Get("prod-1")
	if stored.Stock.Available != 0 {
		t.Fatalf("expected available 0, got %d", stored.Stock.Available)
	}
}

func TestProductRepositoryList(t *testing.T) {
	repo := NewProductRepository()
	for _, id := range []string{"prod-b", "prod-a", "prod-c"} {
		if err := repo.Create(makeProduct(t, id, 5)); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}

	products, err := repo.List(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}

	products, err = repo.List(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products with limit, got %d", len(products))
	}
}
