package catalog

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/inventory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

type catalogFixture struct {
	service  *Service
	products domain.ProductRepository
	outbox   interface {
		domain.OutboxRepository
		AllPending() []domain.OutboxMessage
	}
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	products := memory.NewProductRepository()
	outbox := memory.NewOutboxRepository()
	coordinator := inventory.NewCoordinatorWithoutMetrics(products, outbox, inventory.NewReservationLedger(), nil)
	service := NewService(products, coordinator, outbox, nil)
	return &catalogFixture{service: service, products: products, outbox: outbox}
}

func validParams() CreateProductParams {
	return CreateProductParams{
		ID:                "prod-1",
		Name:              "espresso beans",
		Description:       "1kg bag",
		PriceMinor:        1499,
		Currency:          "USD",
		CategoryID:        "cat-1",
		SupplierID:        "sup-1",
		BrandID:           "brand-1",
		Status:            domain.ProductStatusAvailable,
		Available:         20,
		RestockThreshold:  5,
		MaxStockThreshold: 100,
	}
}

func TestCreateProduct(t *testing.T) {
	f := newCatalogFixture(t)

	product, err := f.service.CreateProduct(validParams())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.ID != "prod-1" || product.Stock.Available != 20 {
		t.Fatalf("unexpected product: %+v", product)
	}

	stored, err := f.service.GetProduct("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.PriceMinor != 1499 || stored.CategoryID != "cat-1" {
		t.Fatalf("catalog attributes lost: %+v", stored)
	}

	// ProductCreated должен оказаться в outbox.
	pending := f.outbox.AllPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(pending))
	}
	if pending[0].EventType != domain.EventProductCreated {
		t.Fatalf("unexpected event type: %s", pending[0].EventType)
	}
}

func TestCreateProductGeneratesID(t *testing.T) {
	f := newCatalogFixture(t)

	params := validParams()
	params.ID = ""
	product, err := f.service.CreateProduct(params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.ID == "" {
		t.Fatal("expected generated product id")
	}
}

func TestCreateProductValidation(t *testing.T) {
	f := newCatalogFixture(t)

	cases := []struct {
		name    string
		mut     func(p *CreateProductParams)
		wantErr error
	}{
		{
			name:    "no name",
			mut:     func(p *CreateProductParams) { p.Name = "" },
			wantErr: domain.ErrProductNameRequired,
		},
		{
			name:    "negative available",
			mut:     func(p *CreateProductParams) { p.Available = -1 },
			wantErr: domain.ErrStockInvalid,
		},
		{
			name:    "available above max",
			mut:     func(p *CreateProductParams) { p.Available = 101 },
			wantErr: domain.ErrStockInvalid,
		},
		{
			name:    "max below threshold",
			mut:     func(p *CreateProductParams) { p.MaxStockThreshold = 4 },
			wantErr: domain.ErrStockInvalid,
		},
		{
			name:    "negative price",
			mut:     func(p *CreateProductParams) { p.PriceMinor = -1 },
			wantErr: domain.ErrPriceInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mut(&params)
			if _, err := f.service.CreateProduct(params); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// Невалидные параметры не должны оставлять товар в каталоге.
	if _, err := f.service.GetProduct("prod-1"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestListProducts(t *testing.T) {
	f := newCatalogFixture(t)

	for _, id := range []string{"prod-a", "prod-b", "prod-c"} {
		params := validParams()
		params.ID = id
		if _, err := f.service.CreateProduct(params); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}

	products, err := f.service.ListProducts(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products with limit, got %d", len(products))
	}

	products, err = f.service.ListProducts(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
}

func TestDebitAndReplenishStock(t *testing.T) {
	f := newCatalogFixture(t)
	if _, err := f.service.CreateProduct(validParams()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.service.DebitStock("prod-1", 5); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if err := f.service.ReplenishStock("prod-1", 10); err != nil {
		t.Fatalf("replenish failed: %v", err)
	}

	product, err := f.service.GetProduct("prod-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if product.Stock.Available != 25 {
		t.Fatalf("expected available 25, got %d", product.Stock.Available)
	}

	if err := f.service.ReplenishStock("prod-1", 100); !errors.Is(err, domain.ErrMaxStockThresholdReached) {
		t.Fatalf("expected ErrMaxStockThresholdReached, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newCatalogFixture(t)
	if _, err := f.service.CreateProduct(validParams()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ok, err := f.service.CheckAvailability("prod-1", 20)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatal("expected availability for exact stock")
	}

	ok, err = f.service.CheckAvailability("prod-1", 21)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatal("expected no availability above stock")
	}
}
