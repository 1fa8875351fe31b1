package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, резерв взят, подтверждение ещё не пришло.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён и принят в работу.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing — заказ собирается.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusOutForDelivery — заказ передан в доставку, отмена больше невозможна.
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	// OrderStatusDelivered — заказ доставлен; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled — заказ отменён до передачи в доставку; терминальный статус.
	OrderStatusCanceled OrderStatus = "canceled"
)

// orderTransitions — явная таблица разрешённых переходов статуса.
// Всё, чего нет в таблице, отклоняется с ErrInvalidTransition:
// произвольное выставление статуса в обход таблицы не допускается.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCanceled},
	OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCanceled},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      nil,
	OrderStatusCanceled:       nil,
}

// CanTransitionTo сообщает, разрешён ли переход из текущего статуса в target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет разрешённых переходов.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// IsValid проверяет, что статус входит в закрытое множество.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CustomerInfo — данные клиента на момент заказа.
type CustomerInfo struct {
	ID   string
	Name string
}

// ProductInfo — снапшот товара на момент заказа, не живая ссылка на каталог:
// цена и наличие на момент заказа не меняются при изменении каталога.
type ProductInfo struct {
	ProductID string
	Name      string
	Qty       int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	Currency   string
}

// Validate проверяет снапшот товара в заказе.
func (p ProductInfo) Validate() []error {
	var errs []error
	if p.ProductID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.Qty <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceInvalid)
	}
	return errs
}

// Order агрегирует состояние заказа на один товар.
type Order struct {
	ID        string
	Customer  CustomerInfo
	Product   ProductInfo
	Status    OrderStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder валидирует вход и создаёт заказ в статусе pending.
func NewOrder(id string, customer CustomerInfo, product ProductInfo) (Order, error) {
	if customer.ID == "" {
		return Order{}, ErrCustomerRequired
	}
	if errs := product.Validate(); len(errs) != 0 {
		return Order{}, errs[0]
	}

	now := time.Now().UTC()
	return Order{
		ID:        id,
		Customer:  customer,
		Product:   product,
		Status:    OrderStatusPending,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition переводит заказ в target, если пара (текущий, target) разрешена.
// При запрете возвращает ErrInvalidTransition и не меняет заказ.
func (o *Order) Transition(target OrderStatus) error {
	if !target.IsValid() {
		return ErrInvalidTransition
	}
	if !o.Status.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error
	if o.Customer.ID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if !o.Status.IsValid() {
		errs = append(errs, ErrInvalidTransition)
	}
	errs = append(errs, o.Product.Validate()...)
	return errs
}

// StatusChange — запись аудита перехода статуса заказа.
type StatusChange struct {
	OrderID  string
	From     OrderStatus
	To       OrderStatus
	Actor    string
	Reason   string
	Occurred time.Time
}
