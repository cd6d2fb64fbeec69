package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grid/internal/generator"
	"github.com/mesh-intelligence/grid/internal/grid"
	"github.com/mesh-intelligence/grid/internal/sqlite"
	"github.com/mesh-intelligence/grid/pkg/types"
)

var _ Mutator = (*grid.Service)(nil)

func newGridService(t *testing.T) *grid.Service {
	t.Helper()
	store, err := sqlite.Open(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return grid.NewService(store, generator.New(1), 0)
}

func TestEditorAgainstService(t *testing.T) {
	ctx := context.Background()
	svc := newGridService(t)

	agg, err := svc.GetOrCreateDefaultTable(ctx, "user-1")
	require.NoError(t, err)
	cache := NewCache(agg)
	e := New(cache, svc)

	_, err = e.Focus(ctx, Position{Row: 2, Col: 1})
	require.NoError(t, err)
	require.NoError(t, e.Input("64"))
	commit, err := e.Blur(ctx)
	require.NoError(t, err)
	require.NoError(t, commit.Wait())

	fresh, err := svc.Aggregate(ctx, agg.TableID)
	require.NoError(t, err)
	assert.Equal(t, float64(64), fresh.Rows[2].Data[agg.Columns[1].ColumnID])
	assert.Equal(t, fresh, cache.Get(), "cache converges on the server state")
}

func TestEditorRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	svc := newGridService(t)

	agg, err := svc.GetOrCreateDefaultTable(ctx, "user-1")
	require.NoError(t, err)

	// Another client's view moves row 0 out from under ours.
	stale := agg.Clone()
	stale.Rows[0].RowID = agg.Rows[1].RowID
	cache := NewCache(stale)
	e := New(cache, svc)
	_, err = e.Focus(ctx, Position{Row: 0, Col: 0})
	require.NoError(t, err)
	require.NoError(t, e.Input("lost update"))
	commit, err := e.Blur(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, commit.Wait(), types.ErrConflict)

	fresh, err := svc.Aggregate(ctx, agg.TableID)
	require.NoError(t, err)
	assert.Equal(t, agg.Rows[0].Data, fresh.Rows[0].Data, "server row is untouched")
	assert.Equal(t, fresh, cache.Get(), "the refetch replaces the stale view")
}
