package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price_minor, currency,
			category_id, supplier_id, brand_id, status,
			available, restock_threshold, max_stock_threshold,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		product.ID, product.Name, product.Description, product.PriceMinor, product.Currency,
		product.CategoryID, product.SupplierID, product.BrandID, string(product.Status),
		product.Stock.Available, product.Stock.RestockThreshold, product.Stock.MaxStockThreshold,
		product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductVersionConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_minor, currency,
		       category_id, supplier_id, brand_id, status,
		       available, restock_threshold, max_stock_threshold,
		       version, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) List(limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, description, price_minor, currency,
		       category_id, supplier_id, brand_id, status,
		       available, restock_threshold, max_stock_threshold,
		       version, created_at, updated_at
		FROM products
		ORDER BY created_at ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Save атомарно перезаписывает товар при совпадении версии.
// Условный UPDATE и есть точка сериализации конкурентных списаний.
func (r *productRepository) Save(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price_minor = $3,
		    currency = $4,
		    category_id = $5,
		    supplier_id = $6,
		    brand_id = $7,
		    status = $8,
		    available = $9,
		    restock_threshold = $10,
		    max_stock_threshold = $11,
		    version = version + 1,
		    updated_at = $12
		WHERE id = $13
		  AND version = $14
	`,
		product.Name, product.Description, product.PriceMinor, product.Currency,
		product.CategoryID, product.SupplierID, product.BrandID, string(product.Status),
		product.Stock.Available, product.Stock.RestockThreshold, product.Stock.MaxStockThreshold,
		product.UpdatedAt, product.ID, product.Version,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.productExists(ctx, product.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrProductVersionConflict
	}

	return nil
}

func (r *productRepository) productExists(ctx context.Context, productID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, productID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product domain.Product
		status  string
	)
	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.PriceMinor, &product.Currency,
		&product.CategoryID, &product.SupplierID, &product.BrandID, &status,
		&product.Stock.Available, &product.Stock.RestockThreshold, &product.Stock.MaxStockThreshold,
		&product.Version, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	product.Status = domain.ProductStatus(status)
	return product, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
