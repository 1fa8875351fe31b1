package domain

import "time"

// ProductStatus описывает доступность товара в каталоге.
type ProductStatus string

const (
	// ProductStatusAvailable — товар продаётся.
	ProductStatusAvailable ProductStatus = "available"
	// ProductStatusDiscontinued — товар снят с продажи, новые резервы запрещены.
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product — агрегат товара. Владеет значением Stock эксклюзивно:
// остаток меняется только через DebitStock/ReplenishStock, каждая успешная
// мутация добавляет ровно одно доменное событие, неуспешная не меняет ничего.
type Product struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	Currency   string
	// Ссылки каталога, непрозрачные для ядра.
	CategoryID string
	SupplierID string
	BrandID    string
	Status     ProductStatus
	Stock      Stock
	// Version — счётчик optimistic locking, инкрементируется хранилищем.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	events []Event
}

// NewProduct валидирует вход и создаёт агрегат с событием ProductCreated.
func NewProduct(id, name string, stock Stock, status ProductStatus, opts ...ProductOption) (*Product, error) {
	if id == "" {
		return nil, ErrProductIDRequired
	}
	if name == "" {
		return nil, ErrProductNameRequired
	}
	if errs := stock.Validate(); len(errs) != 0 {
		return nil, errs[0]
	}
	if status == "" {
		status = ProductStatusAvailable
	}

	now := time.Now().UTC()
	p := &Product{
		ID:        id,
		Name:      name,
		Status:    status,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.PriceMinor < 0 {
		return nil, ErrPriceInvalid
	}

	p.record(ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		Available: p.Stock.Available,
		Occurred:  now,
	})
	return p, nil
}

// ProductOption задаёт необязательные атрибуты каталога при создании.
type ProductOption func(*Product)

// WithDescription задаёт описание товара.
func WithDescription(description string) ProductOption {
	return func(p *Product) { p.Description = description }
}

// WithPrice задаёт цену в минимальных единицах и код валюты.
func WithPrice(priceMinor int64, currency string) ProductOption {
	return func(p *Product) {
		p.PriceMinor = priceMinor
		p.Currency = currency
	}
}

// WithCatalogRefs задаёт ссылки на категорию, поставщика и бренд.
func WithCatalogRefs(categoryID, supplierID, brandID string) ProductOption {
	return func(p *Product) {
		p.CategoryID = categoryID
		p.SupplierID = supplierID
		p.BrandID = brandID
	}
}

// DebitStock списывает qty единиц остатка.
// При ошибке агрегат не меняется и событие не добавляется.
func (p *Product) DebitStock(qty int32) error {
	next, err := p.Stock.Debit(qty)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.Stock = next
	p.UpdatedAt = now
	p.record(ProductStockDebited{
		ProductID:    p.ID,
		Quantity:     qty,
		NewAvailable: next.Available,
		Occurred:     now,
	})
	return nil
}

// ReplenishStock пополняет остаток на qty единиц в пределах MaxStockThreshold.
func (p *Product) ReplenishStock(qty int32) error {
	next, err := p.Stock.Replenish(qty)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.Stock = next
	p.UpdatedAt = now
	p.record(ProductStockReplenished{
		ProductID:    p.ID,
		Quantity:     qty,
		NewAvailable: next.Available,
		Occurred:     now,
	})
	return nil
}

// NeedsRestock сообщает, что пора пополнять запас товара.
func (p *Product) NeedsRestock() bool {
	return p.Stock.NeedsRestock()
}

// UncommittedEvents возвращает события, накопленные с последнего ClearEvents.
// Сливать их в outbox следует только после успешного сохранения агрегата.
func (p *Product) UncommittedEvents() []Event {
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ClearEvents очищает накопленные события.
func (p *Product) ClearEvents() {
	p.events = nil
}

func (p *Product) record(event Event) {
	p.events = append(p.events, event)
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceInvalid)
	}
	errs = append(errs, p.Stock.Validate()...)
	return errs
}
