package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

var (
	ErrNotFound       = port.ErrNotFound
	ErrOptimisticLock = port.ErrOptimisticLock
	ErrDuplicate      = port.ErrDuplicate
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// driverName maps a dialect to the database/sql driver registered for it.
func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	default:
		return string(d)
	}
}

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case DialectSQLite:
		return DialectSQLite, nil
	case DialectMySQL:
		return DialectMySQL, nil
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStore implements every repository port, the SQL alert claim table and
// the demand history used by the analytics oracle on top of sqlx.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
}

// Open connects to the database, verifies the connection and returns a store.
// SQLite is limited to a single connection.
func Open(ctx context.Context, dialect Dialect, dsn string, opts Options) (*SQLStore, error) {
	if dialect == DialectSQLite && !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sqlx.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) rebind(query string) string {
	return s.db.Rebind(query)
}

// scopeClause turns a visibility predicate into a WHERE fragment. Field
// names come from a closed set of constants.
func scopeClause(p domain.Predicate) (string, []any) {
	switch p.Field {
	case domain.ScopeNone:
		return "", nil
	case domain.ScopeFromEntityID, domain.ScopeToEntityID, domain.ScopeHolderID:
		return " AND " + string(p.Field) + " = ?", []any{p.EntityID}
	}
	return " AND 1 = 0", nil
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// SQLITE_CONSTRAINT and its extended codes
		return liteErr.Code()&0xff == 19
	}
	return false
}

// wrapExec wraps a write error, translating unique violations.
func wrapExec(err error, op string) error {
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
