// internal/catalog/cache.go
//
// Slug → ToolType read-through cache in front of Store.GetBySlug.
//
// Subscription requests resolve their tool by slug on every call; the
// cache keeps those lookups off the database.  Concurrent misses for the
// same slug collapse into one load via singleflight.
//
// Freshness
// ---------
//   - Any catalog write purges the whole cache because a patch may move a
//     slug.  The purge also bumps a generation counter; a load that started
//     under an older generation returns its row to its own callers but never
//     stores it.
//   - Entries expire after ttl so writes made by another process (shared
//     MySQL, several replicas) are seen within that bound.

package catalog

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/portal/internal/cache"
	"github.com/yanizio/portal/internal/metrics"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 30 * time.Second
)

type slugCache struct {
	lru *cache.LRU
	sfg singleflight.Group

	mu  sync.Mutex // orders store-after-load against purge
	gen atomic.Uint64
	ttl time.Duration
	now func() time.Time
}

type cached struct {
	tool ToolType
	exp  time.Time
}

func newSlugCache(size int, ttl time.Duration) *slugCache {
	if size < 1 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &slugCache{lru: cache.New(size), ttl: ttl, now: time.Now}
}

func (c *slugCache) lookup(slug string) (ToolType, bool) {
	v, ok := c.lru.Get(slug)
	if !ok {
		return ToolType{}, false
	}
	e := v.(cached)
	if !c.now().Before(e.exp) {
		return ToolType{}, false
	}
	return e.tool, true
}

func (c *slugCache) get(ctx context.Context, slug string, load func(context.Context, string) (ToolType, error)) (ToolType, error) {
	if t, ok := c.lookup(slug); ok {
		return t, nil
	}

	gen := c.gen.Load()
	// Keyed by generation so callers arriving after a purge never join a
	// load that began before it.
	key := strconv.FormatUint(gen, 10) + ":" + slug
	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		if t, ok := c.lookup(slug); ok {
			return t, nil
		}
		t, err := load(ctx, slug)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen.Load() == gen {
			c.lru.Add(slug, cached{tool: t, exp: c.now().Add(c.ttl)})
			metrics.CatalogCacheLoads.Inc()
		}
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return ToolType{}, err
	}
	return v.(ToolType), nil
}

func (c *slugCache) purge() {
	c.mu.Lock()
	c.gen.Add(1)
	c.lru.Purge()
	c.mu.Unlock()
}
