// Package migrations holds the bun schema migrations for the grid store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry applied by the backend on attach and by the
// migrate command.
var Migrations = migrate.NewMigrations()
