package order

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/inventory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

type lifecycleFixture struct {
	lifecycle *Lifecycle
	orders    domain.OrderRepository
	inventory *inventory.MockService
	history   domain.StatusHistoryRepository
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	inv := &inventory.MockService{}
	history := memory.NewStatusHistoryRepository()
	lifecycle := NewLifecycleWithoutMetrics(orders, inv, memory.NewOutboxRepository(), history, nil)
	return &lifecycleFixture{
		lifecycle: lifecycle,
		orders:    orders,
		inventory: inv,
		history:   history,
	}
}

func testCustomer() domain.CustomerInfo {
	return domain.CustomerInfo{ID: "customer-1", Name: "Anna"}
}

func testProduct() domain.ProductInfo {
	return domain.ProductInfo{
		ProductID:  "prod-1",
		Name:       "espresso beans",
		Qty:        2,
		PriceMinor: 1499,
		Currency:   "USD",
	}
}

func TestLifecycleCreate(t *testing.T) {
	f := newLifecycleFixture(t)

	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("new order must be pending, got %s", order.Status)
	}
	if len(f.inventory.ReserveCalls) != 1 {
		t.Fatalf("expected 1 reserve call, got %d", len(f.inventory.ReserveCalls))
	}

	stored, err := f.lifecycle.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Product.ProductID != "prod-1" || stored.Product.Qty != 2 {
		t.Fatalf("unexpected stored snapshot: %+v", stored.Product)
	}

	history, err := f.lifecycle.History(order.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 || history[0].To != domain.OrderStatusPending {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestLifecycleCreateReservationFails(t *testing.T) {
	f := newLifecycleFixture(t)
	f.inventory.ReserveErr = domain.ErrInsufficientStock

	_, err := f.lifecycle.Create(testCustomer(), testProduct())
	if !errors.Is(err, domain.ErrStockUnavailable) {
		t.Fatalf("expected ErrStockUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("cause must be preserved, got %v", err)
	}

	// Заказ не должен был сохраниться.
	orders, listErr := f.lifecycle.ListByCustomer("customer-1", 0)
	if listErr != nil {
		t.Fatalf("list failed: %v", listErr)
	}
	if len(orders) != 0 {
		t.Fatalf("no order must persist after failed reservation, got %d", len(orders))
	}
}

func TestLifecycleCreateInvalidInput(t *testing.T) {
	f := newLifecycleFixture(t)

	if _, err := f.lifecycle.Create(domain.CustomerInfo{}, testProduct()); !errors.Is(err, domain.ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got %v", err)
	}

	invalid := testProduct()
	invalid.Qty = 0
	if _, err := f.lifecycle.Create(testCustomer(), invalid); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}

	// Валидация отклоняет вход до обращения к инвентарю.
	if len(f.inventory.ReserveCalls) != 0 {
		t.Fatalf("invalid input must not reach inventory, got %d calls", len(f.inventory.ReserveCalls))
	}
}

func TestLifecycleTransitionHappyPath(t *testing.T) {
	f := newLifecycleFixture(t)
	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	path := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	}
	for _, target := range path {
		updated, err := f.lifecycle.Transition(order.ID, target, "operator")
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected %s, got %s", target, updated.Status)
		}
	}

	// Доставка закрывает резерв ровно один раз.
	if len(f.inventory.FinalizeCalls) != 1 {
		t.Fatalf("expected 1 finalize call, got %d", len(f.inventory.FinalizeCalls))
	}
	// Доставка не возвращает сток.
	if len(f.inventory.ReleaseCalls) != 0 {
		t.Fatalf("delivery must not release stock, got %d calls", len(f.inventory.ReleaseCalls))
	}

	history, err := f.lifecycle.History(order.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	// created + 4 перехода.
	if len(history) != 5 {
		t.Fatalf("expected 5 history records, got %d", len(history))
	}
}

func TestLifecycleTransitionRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// pending -> delivered в обход цепочки запрещён.
	if _, err := f.lifecycle.Transition(order.ID, domain.OrderStatusDelivered, "operator"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	stored, err := f.lifecycle.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("rejected transition must not change status, got %s", stored.Status)
	}
}

func TestLifecycleTransitionUnknownOrder(t *testing.T) {
	f := newLifecycleFixture(t)
	if _, err := f.lifecycle.Transition("missing", domain.OrderStatusConfirmed, "operator"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestLifecycleCancelReleasesStock(t *testing.T) {
	f := newLifecycleFixture(t)
	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.lifecycle.Transition(order.ID, domain.OrderStatusConfirmed, "operator"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	canceled, err := f.lifecycle.Cancel(order.ID, "customer-1", "changed my mind")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}

	if len(f.inventory.ReleaseCalls) != 1 {
		t.Fatalf("expected 1 release call, got %d", len(f.inventory.ReleaseCalls))
	}
	call := f.inventory.ReleaseCalls[0]
	if call.ProductID != "prod-1" || call.Qty != 2 {
		t.Fatalf("unexpected release call: %+v", call)
	}

	history, err := f.lifecycle.History(order.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	last := history[len(history)-1]
	if last.To != domain.OrderStatusCanceled || last.Actor != "customer-1" || last.Reason != "changed my mind" {
		t.Fatalf("unexpected audit record: %+v", last)
	}
}

func TestLifecycleCancelAfterDeliveryRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, target := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	} {
		if _, err := f.lifecycle.Transition(order.ID, target, "operator"); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	if _, err := f.lifecycle.Cancel(order.ID, "customer-1", "too late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Отказ отмены не трогает резерв.
	if len(f.inventory.ReleaseCalls) != 0 {
		t.Fatalf("rejected cancel must not release stock, got %d calls", len(f.inventory.ReleaseCalls))
	}
}

func TestLifecycleCancelOutForDeliveryRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order, err := f.lifecycle.Create(testCustomer(), testProduct())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, target := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusOutForDelivery,
	} {
		if _, err := f.lifecycle.Transition(order.ID, target, "operator"); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	if _, err := f.lifecycle.Cancel(order.ID, "customer-1", "refused at door"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLifecycleListByCustomer(t *testing.T) {
	f := newLifecycleFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := f.lifecycle.Create(testCustomer(), testProduct()); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := f.lifecycle.Create(domain.CustomerInfo{ID: "customer-2"}, testProduct()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := f.lifecycle.ListByCustomer("customer-1", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders with limit, got %d", len(orders))
	}

	orders, err = f.lifecycle.ListByCustomer("customer-1", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
}
