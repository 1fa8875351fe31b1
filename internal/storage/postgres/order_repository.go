package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, customer_name,
			product_id, product_name, qty, price_minor, currency,
			status, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		order.ID, order.Customer.ID, order.Customer.Name,
		order.Product.ProductID, order.Product.Name, order.Product.Qty,
		order.Product.PriceMinor, order.Product.Currency,
		string(order.Status), order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name,
		       product_id, product_name, qty, price_minor, currency,
		       status, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_id, customer_name,
		       product_id, product_name, qty, price_minor, currency,
		       status, version, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND version = $4
	`,
		string(order.Status), order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := row.Scan(
		&order.ID, &order.Customer.ID, &order.Customer.Name,
		&order.Product.ProductID, &order.Product.Name, &order.Product.Qty,
		&order.Product.PriceMinor, &order.Product.Currency,
		&status, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
