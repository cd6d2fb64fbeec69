// Package sqlite implements the relational storage backend for grids.
// SQLite (modernc.org/sqlite) is the default engine; the same bun queries
// also run against Postgres through pgdriver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/grid/migrations"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// DatabaseFileName is the SQLite file created inside the data directory.
const DatabaseFileName = "grid.db"

// sqliteDSNOptions keeps writers waiting instead of failing with SQLITE_BUSY
// and turns on foreign key enforcement.
const sqliteDSNOptions = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on top of bun.
type Backend struct {
	mu        sync.RWMutex
	attached  bool
	config    types.Config
	db        *bun.DB
	batchSize int
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Open creates a backend and attaches it in one step.
func Open(ctx context.Context, config types.Config) (*Backend, error) {
	b := NewBackend()
	if err := b.Attach(ctx, config); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach opens the database described by config and applies pending schema
// migrations. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	db, err := openDB(config)
	if err != nil {
		return err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrating schema: %w", err)
	}

	b.db = db
	b.config = config
	b.batchSize = config.BatchSize
	b.attached = true
	return nil
}

// Detach releases the database connection. After Detach, all operations
// return ErrClosed. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	return nil
}

// Close implements types.Store.
func (b *Backend) Close() error {
	return b.Detach()
}

// DB exposes the underlying bun handle for tooling such as the migrate
// command. Returns ErrClosed when detached.
func (b *Backend) DB() (*bun.DB, error) {
	return b.conn()
}

// conn returns the attached database handle.
func (b *Backend) conn() (*bun.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrClosed
	}
	return b.db, nil
}

// isPostgres reports whether the attached dialect is Postgres.
func isPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

// openDB connects to the configured engine.
func openDB(config types.Config) (*bun.DB, error) {
	switch config.Backend {
	case types.BackendPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(config.DatabaseURL)))
		sqldb.SetMaxOpenConns(10)
		sqldb.SetMaxIdleConns(2)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, err
		}
		dsn := "file:" + filepath.Join(dataDir, DatabaseFileName) + sqliteDSNOptions
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; a single connection serializes
		// transactions instead of surfacing SQLITE_BUSY to callers.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
}

// OpenDB connects to the database described by config without applying
// migrations, for tooling that manages the schema itself.
func OpenDB(config types.Config) (*bun.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return openDB(config.WithDefaults())
}

// NewMigrator returns a migrator over the grid schema migrations.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, migrations.Migrations)
}

// Migrate applies all pending migrations under the migrator lock.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("initializing migrator: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("locking migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}
	return nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// now returns the current time truncated to microseconds, the precision
// both engines round-trip.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
