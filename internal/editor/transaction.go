package editor

import (
	"sync"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// Transaction is one optimistic edit: the snapshot taken by Begin, any
// number of speculative writes, and exactly one Commit or Revert.
type Transaction struct {
	cache    *Cache
	snapshot *types.Aggregate

	mu   sync.Mutex
	done bool
}

// Apply writes value into the cached row at rowIndex. Rows outside the
// cached page have nothing to update and are skipped.
func (tx *Transaction) Apply(rowIndex int, columnID string, value any) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}

	c := tx.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agg == nil {
		return ErrNoCache
	}
	if rowIndex < 0 || rowIndex >= len(c.agg.Rows) {
		return nil
	}
	row := &c.agg.Rows[rowIndex]
	data := row.Data.Clone()
	if data == nil {
		data = types.RowData{}
	}
	data[columnID] = value
	row.Data = data
	return nil
}

// Commit replaces the cached aggregate with the server's answer.
func (tx *Transaction) Commit(server *types.Aggregate) error {
	if server == nil {
		return ErrNilResponse
	}
	return tx.finish(server)
}

// Revert restores the aggregate exactly as it was when Begin ran.
func (tx *Transaction) Revert() error {
	return tx.finish(tx.snapshot)
}

func (tx *Transaction) finish(agg *types.Aggregate) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.cache.Set(agg)
	return nil
}
