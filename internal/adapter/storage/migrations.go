package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		id VARCHAR(64) PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		name VARCHAR(255) NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		generic_name VARCHAR(255) NOT NULL DEFAULT '',
		category VARCHAR(128) NOT NULL DEFAULT '',
		type VARCHAR(16) NOT NULL DEFAULT '',
		manufacturer VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT,
		requires_refrigeration BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id VARCHAR(64) PRIMARY KEY,
		medicine_id VARCHAR(64) NOT NULL,
		entity_id VARCHAR(64) NOT NULL,
		batch_number VARCHAR(64) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		expiry_date VARCHAR(10) NOT NULL,
		location VARCHAR(128) NOT NULL DEFAULT '',
		unit_cost DECIMAL(12,2) NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE (medicine_id, entity_id, batch_number)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(64) PRIMARY KEY,
		from_entity_id VARCHAR(64) NOT NULL,
		to_entity_id VARCHAR(64) NOT NULL,
		medicine_id VARCHAR(64) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		priority VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id VARCHAR(64) PRIMARY KEY,
		type VARCHAR(16) NOT NULL,
		message TEXT NOT NULL,
		entity_id VARCHAR(64) NOT NULL,
		subject_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_claims (
		subject_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		alert_id VARCHAR(64) NOT NULL,
		PRIMARY KEY (subject_id, status)
	)`,
}

var indexes = []struct {
	name    string
	table   string
	columns string
}{
	{"idx_batches_entity", "batches", "entity_id"},
	{"idx_orders_from", "orders", "from_entity_id, created_at"},
	{"idx_orders_to", "orders", "to_entity_id, created_at"},
	{"idx_orders_medicine", "orders", "medicine_id, created_at"},
	{"idx_alerts_entity", "alerts", "entity_id, created_at"},
}

// Migrate creates the schema if it does not exist. It is safe to run on
// every start.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %s: %w", firstLine(stmt), err)
		}
	}

	for _, idx := range indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if s.dialect == DialectMySQL {
			// MySQL has no IF NOT EXISTS for indexes
			stmt = fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil && !isDuplicateIndex(err) {
			return fmt.Errorf("migrate: index %s: %w", idx.name, err)
		}
	}
	return nil
}

func isDuplicateIndex(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1061
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i > 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
