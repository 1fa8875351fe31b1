package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type historyRepository struct {
	db *sql.DB
}

// NewStatusHistoryRepository создаёт PostgreSQL-реализацию StatusHistoryRepository.
func NewStatusHistoryRepository(store *Store) domain.StatusHistoryRepository {
	return &historyRepository{db: store.DB()}
}

func (r *historyRepository) Append(change domain.StatusChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if change.Occurred.IsZero() {
		change.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor, reason, occurred)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, change.OrderID, string(change.From), string(change.To), change.Actor, change.Reason, change.Occurred); err != nil {
		return fmt.Errorf("append status change: %w", err)
	}

	return nil
}

func (r *historyRepository) List(orderID string) ([]domain.StatusChange, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, from_status, to_status, actor, reason, occurred
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	changes := make([]domain.StatusChange, 0)
	for rows.Next() {
		var (
			change domain.StatusChange
			from   string
			to     string
		)
		if err := rows.Scan(&change.OrderID, &from, &to, &change.Actor, &change.Reason, &change.Occurred); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.From = domain.OrderStatus(from)
		change.To = domain.OrderStatus(to)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}

	return changes, nil
}

var _ domain.StatusHistoryRepository = (*historyRepository)(nil)
