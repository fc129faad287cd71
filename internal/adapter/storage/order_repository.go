package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type orderRow struct {
	ID           string `db:"id"`
	FromEntityID string `db:"from_entity_id"`
	ToEntityID   string `db:"to_entity_id"`
	MedicineID   string `db:"medicine_id"`
	Quantity     int    `db:"quantity"`
	Priority     string `db:"priority"`
	Status       string `db:"status"`
	Version      int    `db:"version"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:           r.ID,
		FromEntityID: r.FromEntityID,
		ToEntityID:   r.ToEntityID,
		MedicineID:   r.MedicineID,
		Quantity:     r.Quantity,
		Priority:     domain.Priority(r.Priority),
		Status:       domain.OrderStatus(r.Status),
		Version:      r.Version,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

const orderColumns = `id, from_entity_id, to_entity_id, medicine_id, quantity, priority,
	status, version, created_at, updated_at`

func (s *SQLStore) CreateOrder(ctx context.Context, o domain.Order) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.FromEntityID, o.ToEntityID, o.MedicineID, o.Quantity, string(o.Priority),
		string(o.Status), 1, millis(o.CreatedAt), millis(o.UpdatedAt),
	)
	if err != nil {
		return wrapExec(err, "insert order")
	}
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id string, scope domain.Predicate) (*domain.Order, error) {
	clause, args := scopeClause(scope)
	var row orderRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`+clause),
		append([]any{id}, args...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o := row.toDomain()
	return &o, nil
}

func (s *SQLStore) ListOrders(ctx context.Context, scope domain.Predicate, page domain.Page) ([]domain.Order, int, error) {
	clause, args := scopeClause(scope)

	var total int
	if err := s.db.GetContext(ctx, &total, s.rebind(`SELECT COUNT(*) FROM orders WHERE 1 = 1`+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT `+orderColumns+` FROM orders WHERE 1 = 1`+clause+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`), append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toDomain())
	}
	return orders, total, nil
}

// UpdateOrderStatus is a compare-and-swap on status: the row is only
// updated while it still holds the status the caller observed.
func (s *SQLStore) UpdateOrderStatus(ctx context.Context, id string, expected, next domain.OrderStatus, at time.Time) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE orders
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(next), millis(at), id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}

	return nil
}

func (s *SQLStore) SumDemand(ctx context.Context, medicineID string, from, to time.Time) (int, int, error) {
	var result struct {
		Quantity int64 `db:"quantity"`
		Orders   int64 `db:"orders"`
	}
	err := s.db.GetContext(ctx, &result, s.rebind(`
		SELECT COALESCE(SUM(quantity), 0) AS quantity, COUNT(*) AS orders
		FROM orders
		WHERE medicine_id = ? AND status <> ? AND created_at >= ? AND created_at < ?`),
		medicineID, string(domain.OrderStatusCancelled), millis(from), millis(to),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("sum demand: %w", err)
	}
	return int(result.Quantity), int(result.Orders), nil
}
