package editor

import (
	"sync"

	"github.com/mesh-intelligence/grid/pkg/types"
)

// Cache holds the one aggregate the client renders. It hands out deep
// copies so callers never alias the cached value.
type Cache struct {
	mu  sync.Mutex
	agg *types.Aggregate
}

// NewCache returns a cache holding a copy of agg, which may be nil.
func NewCache(agg *types.Aggregate) *Cache {
	return &Cache{agg: agg.Clone()}
}

// Get returns a copy of the cached aggregate, or nil when empty.
func (c *Cache) Get() *types.Aggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agg.Clone()
}

// Set replaces the cached aggregate with a copy of agg.
func (c *Cache) Set(agg *types.Aggregate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agg = agg.Clone()
}

// ApplyPatch merges a single-row delta. The patch must carry the version
// directly after the cached one and must name the row cached at its index;
// otherwise ErrStaleCache tells the caller to refetch. A patch for a row
// beyond the cached page only advances the version.
func (c *Cache) ApplyPatch(p types.CellPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agg == nil {
		return ErrNoCache
	}
	if p.TableID != c.agg.TableID || p.Version != c.agg.Version+1 {
		return ErrStaleCache
	}
	if p.RowIndex < len(c.agg.Rows) {
		if c.agg.Rows[p.RowIndex].RowID != p.Row.RowID {
			return ErrStaleCache
		}
		c.agg.Rows[p.RowIndex] = p.Row.Clone()
	}
	c.agg.Version = p.Version
	return nil
}

// Begin snapshots the cached aggregate and opens a transaction on it.
func (c *Cache) Begin() (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agg == nil {
		return nil, ErrNoCache
	}
	return &Transaction{cache: c, snapshot: c.agg.Clone()}, nil
}
