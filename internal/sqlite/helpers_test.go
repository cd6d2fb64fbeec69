package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// newTestBackend attaches a backend to a fresh SQLite file under t.TempDir.
func newTestBackend(t testing.TB) *Backend {
	t.Helper()
	b := NewBackend()
	err := b.Attach(context.Background(), types.Config{
		Backend:   types.BackendSQLite,
		DataDir:   t.TempDir(),
		BatchSize: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

// twoColumnSeed is a Name/Value table with n rows "row-0".."row-(n-1)".
func twoColumnSeed(n int) types.TableSeed {
	return types.TableSeed{
		BaseName:  "Test Base",
		TableName: "Test Table",
		Columns: []types.ColumnSeed{
			{Name: "Name", Type: types.ColumnTypeText},
			{Name: "Value", Type: types.ColumnTypeNumber},
		},
		Rows: func(cols []types.Column) []types.RowData {
			rows := make([]types.RowData, n)
			for i := range rows {
				rows[i] = types.RowData{
					cols[0].ColumnID: fmt.Sprintf("row-%d", i),
					cols[1].ColumnID: float64(i),
				}
			}
			return rows
		},
	}
}

// newSeededTable creates a base and a table with n rows and returns the
// table and its columns.
func newSeededTable(t testing.TB, b *Backend, n int) (*types.Table, []types.Column) {
	t.Helper()
	ctx := context.Background()

	base, err := b.CreateBase(ctx, "user-1", "Test Base")
	require.NoError(t, err)
	table, err := b.CreateTable(ctx, base.BaseID, twoColumnSeed(n))
	require.NoError(t, err)
	cols, err := b.ListColumns(ctx, table.TableID)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	return table, cols
}

// allRows reads every row of a table in creation order.
func allRows(t *testing.T, b *Backend, tableID string) []types.Row {
	t.Helper()
	page, err := b.ListRows(context.Background(), tableID, 0, 1_000_000)
	require.NoError(t, err)
	return page.Rows
}
