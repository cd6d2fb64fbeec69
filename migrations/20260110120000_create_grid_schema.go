package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// SQLite schema. seq is the creation order of every entity; ids are UUID v7
// strings exposed to clients.
var sqliteSchema = []string{
	`CREATE TABLE bases (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    base_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    default_for TEXT UNIQUE,
    created_at TIMESTAMP NOT NULL
);`,
	`CREATE TABLE grid_tables (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    table_id TEXT NOT NULL UNIQUE,
    base_id TEXT NOT NULL REFERENCES bases(base_id),
    name TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);`,
	`CREATE TABLE grid_columns (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    column_id TEXT NOT NULL UNIQUE,
    table_id TEXT NOT NULL REFERENCES grid_tables(table_id),
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);`,
	`CREATE TABLE grid_rows (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    row_id TEXT NOT NULL UNIQUE,
    table_id TEXT NOT NULL REFERENCES grid_tables(table_id),
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);`,
}

// Postgres schema, same shape as sqliteSchema.
var postgresSchema = []string{
	`CREATE TABLE bases (
    seq BIGSERIAL PRIMARY KEY,
    base_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    default_for TEXT UNIQUE,
    created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE grid_tables (
    seq BIGSERIAL PRIMARY KEY,
    table_id TEXT NOT NULL UNIQUE,
    base_id TEXT NOT NULL REFERENCES bases(base_id),
    name TEXT NOT NULL,
    version BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE grid_columns (
    seq BIGSERIAL PRIMARY KEY,
    column_id TEXT NOT NULL UNIQUE,
    table_id TEXT NOT NULL REFERENCES grid_tables(table_id),
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE TABLE grid_rows (
    seq BIGSERIAL PRIMARY KEY,
    row_id TEXT NOT NULL UNIQUE,
    table_id TEXT NOT NULL REFERENCES grid_tables(table_id),
    data TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`,
}

// Index DDL shared by both engines.
var schemaIndexes = []string{
	`CREATE INDEX idx_bases_user ON bases(user_id, seq);`,
	`CREATE INDEX idx_grid_tables_base ON grid_tables(base_id, seq);`,
	`CREATE INDEX idx_grid_columns_table ON grid_columns(table_id, seq);`,
	`CREATE INDEX idx_grid_rows_table ON grid_rows(table_id, seq);`,
}

// dropSchema lists the tables in reverse dependency order.
var dropSchema = []string{
	`DROP TABLE IF EXISTS grid_rows;`,
	`DROP TABLE IF EXISTS grid_columns;`,
	`DROP TABLE IF EXISTS grid_tables;`,
	`DROP TABLE IF EXISTS bases;`,
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		schema := sqliteSchema
		if db.Dialect().Name() == dialect.PG {
			schema = postgresSchema
		}
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range append(schema, schemaIndexes...) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("creating grid schema: %w", err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range dropSchema {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("dropping grid schema: %w", err)
				}
			}
			return nil
		})
	})
}
