package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type batchRow struct {
	ID          string          `db:"id"`
	MedicineID  string          `db:"medicine_id"`
	EntityID    string          `db:"entity_id"`
	BatchNumber string          `db:"batch_number"`
	Quantity    int             `db:"quantity"`
	ExpiryDate  domain.Date     `db:"expiry_date"`
	Location    string          `db:"location"`
	UnitCost    decimal.Decimal `db:"unit_cost"`
	Version     int             `db:"version"`
	CreatedAt   int64           `db:"created_at"`
	UpdatedAt   int64           `db:"updated_at"`
}

// toDomain leaves Status empty; it is derived by the caller.
func (r batchRow) toDomain() domain.Batch {
	return domain.Batch{
		ID:          r.ID,
		MedicineID:  r.MedicineID,
		EntityID:    r.EntityID,
		BatchNumber: r.BatchNumber,
		Quantity:    r.Quantity,
		ExpiryDate:  r.ExpiryDate,
		Location:    r.Location,
		UnitCost:    r.UnitCost,
		Version:     r.Version,
		CreatedAt:   fromMillis(r.CreatedAt),
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
}

const batchColumns = `id, medicine_id, entity_id, batch_number, quantity, expiry_date,
	location, unit_cost, version, created_at, updated_at`

func (s *SQLStore) CreateBatch(ctx context.Context, b domain.Batch) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID, b.MedicineID, b.EntityID, b.BatchNumber, b.Quantity, b.ExpiryDate,
		b.Location, b.UnitCost.StringFixed(2), 1, millis(b.CreatedAt), millis(b.UpdatedAt),
	)
	if err != nil {
		return wrapExec(err, "insert batch")
	}
	return nil
}

func (s *SQLStore) GetBatch(ctx context.Context, id string, scope domain.Predicate) (*domain.Batch, error) {
	clause, args := scopeClause(scope)
	var row batchRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+batchColumns+` FROM batches WHERE id = ?`+clause),
		append([]any{id}, args...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	b := row.toDomain()
	return &b, nil
}

func (s *SQLStore) ListBatches(ctx context.Context, scope domain.Predicate) ([]domain.Batch, error) {
	clause, args := scopeClause(scope)
	var rows []batchRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT `+batchColumns+` FROM batches WHERE 1 = 1`+clause+`
		ORDER BY expiry_date, id`), args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	batches := make([]domain.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, r.toDomain())
	}
	return batches, nil
}

func (s *SQLStore) ListBatchIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.rebind(`
		SELECT id FROM batches WHERE id > ? ORDER BY id LIMIT ?`), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query batch ids: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) UpdateBatchQuantity(ctx context.Context, id string, quantity, version int, at time.Time) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE batches
		SET quantity = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`),
		quantity, millis(at), id, version,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}

	return nil
}
