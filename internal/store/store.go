package store

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate")
)

// sqlite's built-in LOWER folds ASCII only
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1,
		func(_ *sqlite.FunctionContext, args []sqldriver.Value) (sqldriver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore opens the database for the given driver ("postgres" or "sqlite")
func NewStore(driver, databaseURL string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		databaseURL = sqliteDSN(databaseURL)
	}

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite serialises writers; a single connection keeps transactions from
		// tripping over SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

// Ping backs the /ready check
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the schema for the current driver. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := migrations.ReadFile("migrations/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Tx scopes repository calls to one database transaction
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// WithTx runs fn inside a transaction; it commits when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx, driver: s.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqliteDSN turns on foreign keys (ON DELETE CASCADE/SET NULL depend on them) and a
// busy timeout unless the DSN already sets them. Pragmas apply to every pooled connection.
func sqliteDSN(dsn string) string {
	for _, pragma := range []struct{ name, value string }{
		{"foreign_keys", "_pragma=foreign_keys(1)"},
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
	} {
		if strings.Contains(dsn, pragma.name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + pragma.value
	}
	return dsn
}

// lowerFunc names the Unicode-aware lower-case SQL function for the driver
func lowerFunc(driver string) string {
	if driver == DriverSQLite {
		return "unicode_lower"
	}
	return "LOWER"
}

// forUpdate returns the row-lock suffix; sqlite locks the whole database on write instead.
func forUpdate(driver string) string {
	if driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() time.Time {
	return time.Now().UTC()
}
