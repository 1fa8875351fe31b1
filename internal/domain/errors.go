package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка некорректного количества (<= 0) в операции над стоком.
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка некорректного значения стока (отрицательные поля или available > max).
	ErrStockInvalid = errors.New("stock value violates invariants")
	// Ошибка отрицательной цены товара.
	ErrPriceInvalid = errors.New("price must be non-negative")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка некорректного снапшота товара в заказе.
	ErrProductInfoInvalid = errors.New("order product info is invalid")

	// ErrInsufficientStock — списание превышает доступный остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrMaxStockThresholdReached — пополнение превысило бы максимальный порог.
	ErrMaxStockThresholdReached = errors.New("max stock threshold reached")
	// ErrInvalidTransition — запрошенный переход статуса заказа не разрешён.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrStockUnavailable — заказ не создан, так как резервирование не удалось.
	ErrStockUnavailable = errors.New("stock unavailable")
	// ErrProductDiscontinued — операции над снятым с продажи товаром запрещены.
	ErrProductDiscontinued = errors.New("product is discontinued")

	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductVersionConflict сигнализирует о конфликте версий при сохранении товара.
	ErrProductVersionConflict = errors.New("product version conflict")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий (товар или заказ).
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrProductVersionConflict) || errors.Is(err, ErrOrderVersionConflict)
}

// IsBusinessError отличает ожидаемые бизнес-отказы от инфраструктурных ошибок:
// вызывающая сторона показывает «нет в наличии», а не «системная ошибка».
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrMaxStockThresholdReached) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStockUnavailable) ||
		errors.Is(err, ErrProductDiscontinued)
}
