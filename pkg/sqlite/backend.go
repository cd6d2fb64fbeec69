// Package sqlite exposes the grid storage backend to other modules while
// keeping its implementation internal.
package sqlite

import (
	"context"

	"github.com/mesh-intelligence/grid/internal/sqlite"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// Open connects to the database described by config, applies pending
// migrations, and returns the store. Close it when done.
//
// Example:
//
//	store, err := sqlite.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/grid",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(ctx context.Context, config types.Config) (types.Store, error) {
	b, err := sqlite.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return b, nil
}
