package grid

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grid/internal/generator"
	"github.com/mesh-intelligence/grid/internal/sqlite"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// countingStore records calls that matter to the bulk and default paths.
type countingStore struct {
	types.Store

	batchCalls   atomic.Int32
	defaultCalls atomic.Int32

	mu         sync.Mutex
	batchSizes []int
}

func (c *countingStore) CreateRowsBatch(ctx context.Context, tableID string, rows []types.RowData) (int, error) {
	c.batchCalls.Add(1)
	c.mu.Lock()
	c.batchSizes = append(c.batchSizes, len(rows))
	c.mu.Unlock()
	return c.Store.CreateRowsBatch(ctx, tableID, rows)
}

func (c *countingStore) CreateDefaultTable(ctx context.Context, userID string, spec types.TableSeed) (*types.Table, bool, error) {
	c.defaultCalls.Add(1)
	return c.Store.CreateDefaultTable(ctx, userID, spec)
}

// columnRaceStore adds a column right after the next ListColumns returns,
// as a concurrent writer would between a service's column read and its
// insert.
type columnRaceStore struct {
	types.Store

	armed atomic.Bool
	added *types.Column
}

func (c *columnRaceStore) ListColumns(ctx context.Context, tableID string) ([]types.Column, error) {
	cols, err := c.Store.ListColumns(ctx, tableID)
	if err != nil || !c.armed.CompareAndSwap(true, false) {
		return cols, err
	}
	col, err := c.Store.AddColumn(ctx, tableID, "Concurrent", types.ColumnTypeText)
	if err != nil {
		return nil, err
	}
	c.added = col
	return cols, nil
}

// gatedStore holds FirstTableForUser until release is closed.
type gatedStore struct {
	types.Store

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) FirstTableForUser(ctx context.Context, userID string) (*types.Table, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Store.FirstTableForUser(ctx, userID)
}

// panicStore fails the test on any store access; an embedded nil interface
// panics on every call.
type panicStore struct {
	types.Store
}

func newTestStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.Open(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newTestService(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	store := &countingStore{Store: newTestStore(t)}
	return NewService(store, generator.New(7), 0), store
}
