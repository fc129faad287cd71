package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type entityRow struct {
	ID        string `db:"id"`
	Kind      string `db:"kind"`
	Name      string `db:"name"`
	Location  string `db:"location"`
	CreatedAt int64  `db:"created_at"`
}

func (r entityRow) toDomain() domain.Entity {
	return domain.Entity{
		ID:        r.ID,
		Kind:      domain.EntityKind(r.Kind),
		Name:      r.Name,
		Location:  r.Location,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

func (s *SQLStore) CreateEntity(ctx context.Context, e domain.Entity) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO entities (id, kind, name, location, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		e.ID, string(e.Kind), e.Name, e.Location, millis(e.CreatedAt),
	)
	if err != nil {
		return wrapExec(err, "insert entity")
	}
	return nil
}

func (s *SQLStore) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	var row entityRow
	err := s.db.GetContext(ctx, &row, s.rebind(`
		SELECT id, kind, name, location, created_at
		FROM entities WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query entity: %w", err)
	}
	e := row.toDomain()
	return &e, nil
}

func (s *SQLStore) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, kind, name, location, created_at
		FROM entities ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	entities := make([]domain.Entity, 0, len(rows))
	for _, r := range rows {
		entities = append(entities, r.toDomain())
	}
	return entities, nil
}

type medicineRow struct {
	ID                    string `db:"id"`
	Name                  string `db:"name"`
	GenericName           string `db:"generic_name"`
	Category              string `db:"category"`
	Type                  string `db:"type"`
	Manufacturer          string `db:"manufacturer"`
	Description           string `db:"description"`
	RequiresRefrigeration bool   `db:"requires_refrigeration"`
	CreatedAt             int64  `db:"created_at"`
}

func (r medicineRow) toDomain() domain.Medicine {
	return domain.Medicine{
		ID:                    r.ID,
		Name:                  r.Name,
		GenericName:           r.GenericName,
		Category:              r.Category,
		Type:                  domain.MedicineType(r.Type),
		Manufacturer:          r.Manufacturer,
		Description:           r.Description,
		RequiresRefrigeration: r.RequiresRefrigeration,
		CreatedAt:             fromMillis(r.CreatedAt),
	}
}

const medicineColumns = `id, name, generic_name, category, type, manufacturer,
	COALESCE(description, '') AS description, requires_refrigeration, created_at`

func (s *SQLStore) CreateMedicine(ctx context.Context, m domain.Medicine) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO medicines (id, name, generic_name, category, type, manufacturer, description, requires_refrigeration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.Name, m.GenericName, m.Category, string(m.Type), m.Manufacturer,
		m.Description, m.RequiresRefrigeration, millis(m.CreatedAt),
	)
	if err != nil {
		return wrapExec(err, "insert medicine")
	}
	return nil
}

func (s *SQLStore) GetMedicine(ctx context.Context, id string) (*domain.Medicine, error) {
	var row medicineRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query medicine: %w", err)
	}
	m := row.toDomain()
	return &m, nil
}

func (s *SQLStore) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+medicineColumns+` FROM medicines ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}
	medicines := make([]domain.Medicine, 0, len(rows))
	for _, r := range rows {
		medicines = append(medicines, r.toDomain())
	}
	return medicines, nil
}
