package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func makeCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{ID: "customer-1", Name: "Ivan"}
}

func makeProductInfo() domain.ProductInfo {
	return domain.ProductInfo{
		ProductID:  "prod-1",
		Name:       "espresso beans",
		Qty:        2,
		PriceMinor: 1499,
		Currency:   "USD",
	}
}

func TestNewOrder(t *testing.T) {
	order, err := domain.NewOrder("order-1", makeCustomer(), makeProductInfo())
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("new order must start pending, got %s", order.Status)
	}
	if order.Version != 0 {
		t.Fatalf("new order must start at version 0, got %d", order.Version)
	}
}

func TestNewOrder_Errors(t *testing.T) {
	cases := []struct {
		name     string
		customer domain.CustomerInfo
		product  domain.ProductInfo
		wantErr  error
	}{
		{
			name:     "no customer",
			customer: domain.CustomerInfo{},
			product:  makeProductInfo(),
			wantErr:  domain.ErrCustomerRequired,
		},
		{
			name:     "no product id",
			customer: makeCustomer(),
			product:  domain.ProductInfo{Qty: 1, PriceMinor: 100},
			wantErr:  domain.ErrProductIDRequired,
		},
		{
			name:     "zero qty",
			customer: makeCustomer(),
			product:  domain.ProductInfo{ProductID: "prod-1", Qty: 0, PriceMinor: 100},
			wantErr:  domain.ErrQuantityInvalid,
		},
		{
			name:     "negative price",
			customer: makeCustomer(),
			product:  domain.ProductInfo{ProductID: "prod-1", Qty: 1, PriceMinor: -1},
			wantErr:  domain.ErrPriceInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := domain.NewOrder("order-x", tc.customer, tc.product); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

// Полная матрица переходов: всё, чего нет в списке allowed, запрещено.
func TestOrderStatusTransitionMatrix(t *testing.T) {
	statuses := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
		domain.OrderStatusCanceled,
	}

	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:        {domain.OrderStatusConfirmed, domain.OrderStatusCanceled},
		domain.OrderStatusConfirmed:      {domain.OrderStatusPreparing, domain.OrderStatusCanceled},
		domain.OrderStatusPreparing:      {domain.OrderStatusOutForDelivery, domain.OrderStatusCanceled},
		domain.OrderStatusOutForDelivery: {domain.OrderStatusDelivered},
		domain.OrderStatusDelivered:      nil,
		domain.OrderStatusCanceled:       nil,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: CanTransitionTo = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[domain.OrderStatus]bool{
		domain.OrderStatusPending:        false,
		domain.OrderStatusConfirmed:      false,
		domain.OrderStatusPreparing:      false,
		domain.OrderStatusOutForDelivery: false,
		domain.OrderStatusDelivered:      true,
		domain.OrderStatusCanceled:       true,
	}

	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s: IsTerminal = %v, want %v", status, got, want)
		}
	}

	if domain.OrderStatus("bogus").IsValid() {
		t.Error("unknown status must not be valid")
	}
}

func TestOrderTransition(t *testing.T) {
	order, err := domain.NewOrder("order-1", makeCustomer(), makeProductInfo())
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	path := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	}
	for _, target := range path {
		if err := order.Transition(target); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if order.Status != target {
			t.Fatalf("expected status %s, got %s", target, order.Status)
		}
	}

	// Из терминального статуса выхода нет.
	if err := order.Transition(domain.OrderStatusCanceled); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if order.Status != domain.OrderStatusDelivered {
		t.Fatalf("rejected transition must not change status, got %s", order.Status)
	}
}

func TestOrderTransitionRejectsSkips(t *testing.T) {
	order, err := domain.NewOrder("order-1", makeCustomer(), makeProductInfo())
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	// pending -> delivered в обход цепочки запрещён.
	if err := order.Transition(domain.OrderStatusDelivered); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Неизвестный статус отклоняется до обращения к таблице.
	if err := order.Transition(domain.OrderStatus("bogus")); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("status mutated: %s", order.Status)
	}
}

func TestOrderValidateInvariants(t *testing.T) {
	order, err := domain.NewOrder("order-1", makeCustomer(), makeProductInfo())
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{name: "no customer", mut: func(o *domain.Order) { o.Customer.ID = "" }},
		{name: "unknown status", mut: func(o *domain.Order) { o.Status = "bogus" }},
		{name: "qty invalid", mut: func(o *domain.Order) { o.Product.Qty = 0 }},
		{name: "price invalid", mut: func(o *domain.Order) { o.Product.PriceMinor = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mutated := order
			tc.mut(&mutated)
			if len(mutated.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}
