package compiler

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/stackplan/stackplan/pkg/plan"
)

// Cache provides thread-safe caching of compiled plans keyed by the
// content hash of the template document
type Cache struct {
	mu    sync.RWMutex
	items map[string]*plan.Plan
}

// NewCache creates a new cache instance
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*plan.Plan),
	}
}

// Get retrieves a plan from the cache
// Returns the plan and true if found, nil and false otherwise
func (c *Cache) Get(key string) (*plan.Plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, found := c.items[key]
	return p, found
}

// Set stores a plan in the cache
func (c *Cache) Set(key string, p *plan.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = p
}

// Delete removes a plan from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all plans from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*plan.Plan)
}

// Size returns the number of plans in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// DocumentKey returns the cache key for a raw template document
func DocumentKey(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// CompileCached compiles through the given cache. Byte-identical
// documents compile once; compilation is deterministic, so a cached
// plan is indistinguishable from a fresh one.
func (c *Compiler) CompileCached(cache *Cache, data []byte) (*plan.Plan, error) {
	key := DocumentKey(data)
	if p, found := cache.Get(key); found {
		c.log.V(1).Info("plan cache hit", "key", key)
		return p, nil
	}

	p, err := c.Compile(data)
	if err != nil {
		return nil, err
	}

	cache.Set(key, p)
	return p, nil
}
