package mcp

import (
	"sync"

	"easlog/src/aggregate"
)

// ExportCache keeps aggregated documents for drill-down by export ID.
type ExportCache interface {
	// Put saves an export.
	Put(exportID string, entry CachedExport)
	// Get retrieves an export.
	Get(exportID string) (CachedExport, bool)
}

// CachedExport is what get_export reads from.
type CachedExport struct {
	Manifest Manifest
	Groups   *aggregate.PhaseGroup
	Document string
}

// InMemoryCache is a thread-safe ExportCache holding at most limit entries.
// The oldest entry is evicted first.
type InMemoryCache struct {
	mu      sync.RWMutex
	limit   int
	order   []string
	exports map[string]CachedExport
}

// NewInMemoryCache creates a cache; limit <= 0 means 32.
func NewInMemoryCache(limit int) *InMemoryCache {
	if limit <= 0 {
		limit = 32
	}
	return &InMemoryCache{
		limit:   limit,
		exports: make(map[string]CachedExport),
	}
}

// Put saves an export, evicting the oldest one when full.
func (c *InMemoryCache) Put(exportID string, entry CachedExport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.exports[exportID]; !exists {
		c.order = append(c.order, exportID)
	}
	c.exports[exportID] = entry

	for len(c.order) > c.limit {
		delete(c.exports, c.order[0])
		c.order = c.order[1:]
	}
}

// Get retrieves an export.
func (c *InMemoryCache) Get(exportID string) (CachedExport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.exports[exportID]
	return e, ok
}
