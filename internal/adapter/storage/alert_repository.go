package storage

import (
	"context"
	"fmt"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

type alertRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	Message   string `db:"message"`
	EntityID  string `db:"entity_id"`
	SubjectID string `db:"subject_id"`
	CreatedAt int64  `db:"created_at"`
}

func (s *SQLStore) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO alerts (id, type, message, entity_id, subject_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, string(a.Type), a.Message, a.EntityID, a.SubjectID, millis(a.CreatedAt),
	)
	if err != nil {
		return wrapExec(err, "insert alert")
	}
	return nil
}

func (s *SQLStore) ListAlerts(ctx context.Context, entityID string) ([]domain.Alert, error) {
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows, s.rebind(`
		SELECT id, type, message, entity_id, subject_id, created_at
		FROM alerts WHERE entity_id = ?
		ORDER BY created_at DESC, id DESC`), entityID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(rows))
	for _, r := range rows {
		alerts = append(alerts, domain.Alert{
			ID:        r.ID,
			Type:      domain.AlertType(r.Type),
			Message:   r.Message,
			EntityID:  r.EntityID,
			SubjectID: r.SubjectID,
			CreatedAt: fromMillis(r.CreatedAt),
		})
	}
	return alerts, nil
}

// Claim inserts the claim row unless one exists; the primary key on
// (subject_id, status) makes the check and the insert a single step.
func (s *SQLStore) Claim(ctx context.Context, key domain.ClaimKey, alertID string) (bool, error) {
	var stmt string
	switch s.dialect {
	case DialectMySQL:
		stmt = `INSERT IGNORE INTO alert_claims (subject_id, status, alert_id) VALUES (?, ?, ?)`
	case DialectPostgres:
		stmt = `INSERT INTO alert_claims (subject_id, status, alert_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`
	default:
		stmt = `INSERT OR IGNORE INTO alert_claims (subject_id, status, alert_id) VALUES (?, ?, ?)`
	}

	result, err := s.db.ExecContext(ctx, s.rebind(stmt), key.SubjectID, key.Status, alertID)
	if err != nil {
		return false, fmt.Errorf("claim alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (s *SQLStore) Release(ctx context.Context, keys ...domain.ClaimKey) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, s.rebind(`
			DELETE FROM alert_claims WHERE subject_id = ? AND status = ?`), k.SubjectID, k.Status); err != nil {
			return fmt.Errorf("release alert claim %s: %w", k, err)
		}
	}
	return nil
}

func (s *SQLStore) Unclaim(ctx context.Context, key domain.ClaimKey, alertID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM alert_claims WHERE subject_id = ? AND status = ? AND alert_id = ?`),
		key.SubjectID, key.Status, alertID); err != nil {
		return fmt.Errorf("unclaim alert %s: %w", key, err)
	}
	return nil
}
