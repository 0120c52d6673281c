package survey

import (
	"sync"
	"time"
)

// CatalogCache holds the question catalog between runs so that metadata is not
// re-read on every request. A cached Catalog is immutable, so handing the same
// pointer to concurrent runs is safe.
type CatalogCache interface {
	// Get returns the cached catalog, or nil on a miss or after expiry
	Get() *Catalog

	// Set stores a catalog
	Set(c *Catalog)

	// Invalidate clears the cache, forcing a read on the next run
	Invalidate()

	// IsValid returns true if the cache holds an unexpired catalog
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the lifetime of a cached catalog.
	// 0 keeps it until Invalidate is called.
	TTL time.Duration
}

// InMemoryCatalogCache is an in-memory CatalogCache.
// Thread-safe for concurrent access.
type InMemoryCatalogCache struct {
	catalog  *Catalog
	cachedAt time.Time
	config   CacheConfig
	now      func() time.Time
	mu       sync.RWMutex
}

// NewInMemoryCatalogCache creates an empty cache
func NewInMemoryCatalogCache(config CacheConfig) *InMemoryCatalogCache {
	return &InMemoryCatalogCache{
		config: config,
		now:    time.Now,
	}
}

func (c *InMemoryCatalogCache) Get() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.validLocked() {
		return nil
	}
	return c.catalog
}

func (c *InMemoryCatalogCache) Set(catalog *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = catalog
	c.cachedAt = c.now()
}

func (c *InMemoryCatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = nil
}

func (c *InMemoryCatalogCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.validLocked()
}

func (c *InMemoryCatalogCache) validLocked() bool {
	if c.catalog == nil {
		return false
	}
	if c.config.TTL > 0 && c.now().Sub(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
