package app

import (
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// newTestProduct создаёт товар для тестов app-уровня.
func newTestProduct(t *testing.T, id string, available int32) domain.Product {
	t.Helper()

	stock, err := domain.NewStock(available, 5, 1000)
	if err != nil {
		t.Fatalf("new stock: %v", err)
	}
	product, err := domain.NewProduct(id, "test product", stock, domain.ProductStatusAvailable,
		domain.WithPrice(1500, "USD"),
	)
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	product.ClearEvents()
	return *product
}

// newTestOrder создаёт заказ для тестов app-уровня.
func newTestOrder(t *testing.T, id string) domain.Order {
	t.Helper()

	order, err := domain.NewOrder(id,
		domain.CustomerInfo{ID: "test-customer-1", Name: "test customer"},
		domain.ProductInfo{ProductID: "test-product-1", Name: "test product", Qty: 1, PriceMinor: 1000, Currency: "USD"},
	)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	return order
}
