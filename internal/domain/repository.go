package domain

// ProductRepository описывает требования к хранилищу товаров.
// Save обязан быть атомарной условной записью: проверка инвариантов стока
// и запись нового значения не должны разъезжаться между конкурентными мутациями.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ошибку, если запись с таким ID уже существует.
	Create(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound, если его нет.
	Get(id string) (Product, error)
	// List возвращает товары каталога с опциональным ограничением на количество.
	List(limit int) ([]Product, error)
	// Save применяет обновления к товару с учётом optimistic locking.
	// При несовпадении версии возвращает ErrProductVersionConflict.
	Save(product Product) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}
