package domain

// Stock — неизменяемое значение складского остатка товара.
// Операции не мутируют получателя: возвращают новое значение либо ошибку.
type Stock struct {
	// Available — доступный остаток, не задействованный в заказах.
	Available int32
	// RestockThreshold — уровень, при котором пора пополнять запас (сигнальный).
	RestockThreshold int32
	// MaxStockThreshold — жёсткий потолок остатка, пополнение сверх него запрещено.
	MaxStockThreshold int32
}

// NewStock валидирует и создаёт значение стока.
// Инвариант: 0 <= Available <= MaxStockThreshold и 0 <= RestockThreshold <= MaxStockThreshold.
func NewStock(available, restockThreshold, maxStockThreshold int32) (Stock, error) {
	if available < 0 || restockThreshold < 0 {
		return Stock{}, ErrStockInvalid
	}
	if maxStockThreshold < restockThreshold {
		return Stock{}, ErrStockInvalid
	}
	if available > maxStockThreshold {
		return Stock{}, ErrStockInvalid
	}
	return Stock{
		Available:         available,
		RestockThreshold:  restockThreshold,
		MaxStockThreshold: maxStockThreshold,
	}, nil
}

// Debit списывает qty единиц. Нулевое и отрицательное qty отклоняется:
// no-op мутации не должны порождать события.
func (s Stock) Debit(qty int32) (Stock, error) {
	if qty <= 0 {
		return Stock{}, ErrQuantityInvalid
	}
	if qty > s.Available {
		return Stock{}, ErrInsufficientStock
	}
	s.Available -= qty
	return s, nil
}

// Replenish добавляет qty единиц, не превышая MaxStockThreshold.
func (s Stock) Replenish(qty int32) (Stock, error) {
	if qty <= 0 {
		return Stock{}, ErrQuantityInvalid
	}
	if s.Available+qty > s.MaxStockThreshold {
		return Stock{}, ErrMaxStockThresholdReached
	}
	s.Available += qty
	return s, nil
}

// NeedsRestock сообщает, что остаток на пороге пополнения или ниже.
// Чистый запрос: доставка уведомлений — забота вызывающей стороны.
func (s Stock) NeedsRestock() bool {
	return s.Available <= s.RestockThreshold
}

// Validate проверяет инварианты значения и возвращает список замечаний.
func (s Stock) Validate() []error {
	var errs []error
	if s.Available < 0 || s.RestockThreshold < 0 || s.MaxStockThreshold < s.RestockThreshold {
		errs = append(errs, ErrStockInvalid)
	}
	if s.Available > s.MaxStockThreshold {
		errs = append(errs, ErrStockInvalid)
	}
	return errs
}
