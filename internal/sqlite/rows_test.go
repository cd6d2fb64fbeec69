package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grid/pkg/types"
)

func TestUpdateRowDataByIndex(t *testing.T) {
	const n = 6
	for i := 0; i < n; i++ {
		t.Run(fmt.Sprintf("index %d", i), func(t *testing.T) {
			b := newTestBackend(t)
			ctx := context.Background()
			table, cols := newSeededTable(t, b, n)
			before := allRows(t, b, table.TableID)

			row, version, err := b.UpdateRowDataByIndex(ctx, table.TableID, i, cols[0].ColumnID, "edited")
			require.NoError(t, err)
			assert.Equal(t, before[i].RowID, row.RowID)
			assert.Equal(t, table.Version+1, version)

			after := allRows(t, b, table.TableID)
			require.Len(t, after, n)
			for j := range after {
				if j == i {
					assert.Equal(t, "edited", after[j].Data[cols[0].ColumnID])
					assert.Equal(t, before[j].Data[cols[1].ColumnID], after[j].Data[cols[1].ColumnID],
						"other cells of the edited row are untouched")
					continue
				}
				assert.Equal(t, before[j].Data, after[j].Data, "row %d is untouched", j)
			}
		})
	}
}

func TestUpdateRowDataByIndexErrors(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 3)

	tests := []struct {
		name     string
		tableID  string
		rowIndex int
		value    any
		wantErr  error
	}{
		{name: "index past the end", tableID: table.TableID, rowIndex: 3, value: "x", wantErr: types.ErrNotFound},
		{name: "negative index", tableID: table.TableID, rowIndex: -1, value: "x", wantErr: types.ErrInvalidRowIndex},
		{name: "missing table", tableID: "missing", rowIndex: 0, value: "x", wantErr: types.ErrNotFound},
		{name: "unsupported value", tableID: table.TableID, rowIndex: 0, value: true, wantErr: types.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := b.UpdateRowDataByIndex(ctx, tt.tableID, tt.rowIndex, cols[0].ColumnID, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	got, err := b.GetTable(ctx, table.TableID)
	require.NoError(t, err)
	assert.Equal(t, table.Version, got.Version, "failed updates do not bump the version")
}

func TestUpdateRowDataValues(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 1)

	_, _, err := b.UpdateRowDataByIndex(ctx, table.TableID, 0, cols[1].ColumnID, 42)
	require.NoError(t, err)
	rows := allRows(t, b, table.TableID)
	assert.Equal(t, float64(42), rows[0].Data[cols[1].ColumnID], "integers are stored as numbers")

	_, _, err = b.UpdateRowDataByIndex(ctx, table.TableID, 0, cols[1].ColumnID, nil)
	require.NoError(t, err)
	rows = allRows(t, b, table.TableID)
	v, ok := rows[0].Data.Lookup(cols[1].ColumnID)
	assert.True(t, ok, "null is stored as a present key")
	assert.Nil(t, v)

	_, _, err = b.UpdateRowDataByIndex(ctx, table.TableID, 0, "unknown-column", "free-form")
	require.NoError(t, err, "column ids are not validated against the registry")
}

func TestUpdateRowDataByID(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 4)
	rows := allRows(t, b, table.TableID)

	row, _, err := b.UpdateRowDataByID(ctx, table.TableID, rows[2].RowID, cols[0].ColumnID, "by id")
	require.NoError(t, err)
	assert.Equal(t, rows[2].RowID, row.RowID)
	assert.Equal(t, "by id", allRows(t, b, table.TableID)[2].Data[cols[0].ColumnID])

	_, _, err = b.UpdateRowDataByID(ctx, table.TableID, "missing-row", cols[0].ColumnID, "x")
	assert.ErrorIs(t, err, types.ErrNotFound)

	other, _ := newSeededTable(t, b, 1)
	_, _, err = b.UpdateRowDataByID(ctx, other.TableID, rows[0].RowID, cols[0].ColumnID, "x")
	assert.ErrorIs(t, err, types.ErrNotFound, "row ids are scoped to their table")
}

func TestRowIDAt(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, _ := newSeededTable(t, b, 3)
	rows := allRows(t, b, table.TableID)

	id, err := b.RowIDAt(ctx, table.TableID, 1)
	require.NoError(t, err)
	assert.Equal(t, rows[1].RowID, id)

	_, err = b.RowIDAt(ctx, table.TableID, 3)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateRow(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 2)

	row, err := b.CreateRow(ctx, table.TableID, types.RowData{cols[0].ColumnID: nil, cols[1].ColumnID: nil})
	require.NoError(t, err)
	assert.NotEmpty(t, row.RowID)
	assert.False(t, row.CreatedAt.IsZero())

	rows := allRows(t, b, table.TableID)
	require.Len(t, rows, 3)
	assert.Equal(t, row.RowID, rows[2].RowID, "new rows sort last")

	_, err = b.CreateRow(ctx, "missing", nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateRowsBatch(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 0)

	// 250 rows with a chunk size of 100 spans three INSERT statements.
	batch := make([]types.RowData, 250)
	for i := range batch {
		batch[i] = types.RowData{cols[0].ColumnID: fmt.Sprintf("bulk-%03d", i)}
	}
	n, err := b.CreateRowsBatch(ctx, table.TableID, batch)
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	rows := allRows(t, b, table.TableID)
	require.Len(t, rows, 250)
	for i, r := range rows {
		assert.Equal(t, fmt.Sprintf("bulk-%03d", i), r.Data[cols[0].ColumnID], "slice order is creation order")
	}

	got, err := b.GetTable(ctx, table.TableID)
	require.NoError(t, err)
	assert.Equal(t, table.Version+1, got.Version, "one batch is one mutation")
}

func TestCreateRowsFillsMissingColumns(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 0)

	caller := types.RowData{cols[0].ColumnID: "partial"}
	_, err := b.CreateRow(ctx, table.TableID, caller)
	require.NoError(t, err)
	assert.Len(t, caller, 1, "the caller's map is not modified")

	_, err = b.CreateRowsBatch(ctx, table.TableID, []types.RowData{{}, nil})
	require.NoError(t, err)

	rows := allRows(t, b, table.TableID)
	require.Len(t, rows, 3)
	assert.Equal(t, types.RowData{cols[0].ColumnID: "partial", cols[1].ColumnID: nil}, rows[0].Data)
	for _, r := range rows[1:] {
		assert.Equal(t, types.RowData{cols[0].ColumnID: nil, cols[1].ColumnID: nil}, r.Data)
	}
}

func TestCreateRowsBatchIsAllOrNothing(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	n, err := b.CreateRowsBatch(ctx, "missing", []types.RowData{{"a": "b"}})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Zero(t, n)

	n, err = b.CreateRowsBatch(ctx, "missing", nil)
	require.NoError(t, err)
	assert.Zero(t, n, "empty batch is a no-op")
}

func TestListRowsPagination(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, cols := newSeededTable(t, b, 250)

	var seen []types.Row
	var hasMore []bool
	ids := map[string]bool{}
	for page := 0; page < 3; page++ {
		p, err := b.ListRows(ctx, table.TableID, page*100, 100)
		require.NoError(t, err)
		assert.Equal(t, 250, p.TotalCount)
		hasMore = append(hasMore, p.HasMore)
		for _, r := range p.Rows {
			assert.False(t, ids[r.RowID], "row %s returned twice", r.RowID)
			ids[r.RowID] = true
		}
		seen = append(seen, p.Rows...)
	}

	require.Len(t, seen, 250)
	for i, r := range seen {
		assert.Equal(t, fmt.Sprintf("row-%d", i), r.Data[cols[0].ColumnID])
	}
	assert.Equal(t, []bool{true, true, false}, hasMore)
}

func TestListRowsBounds(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	table, _ := newSeededTable(t, b, 5)

	p, err := b.ListRows(ctx, table.TableID, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, p.Rows)
	assert.Equal(t, 5, p.TotalCount)
	assert.False(t, p.HasMore)

	_, err = b.ListRows(ctx, table.TableID, -1, 10)
	assert.ErrorIs(t, err, types.ErrInvalidPage)
	_, err = b.ListRows(ctx, table.TableID, 0, 0)
	assert.ErrorIs(t, err, types.ErrInvalidLimit)

	n, err := b.CountRows(ctx, table.TableID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
