package pagecache

import (
	"context"
	"sync"
	"time"

	"github.com/sohoz88/promo-site/pkg/metrics"
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCache keeps pages in process memory.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	versions map[string]int64
	epoch    int64
	now      func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]entry),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, path string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()

	if ok && !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
		ok = false
	}

	if !ok {
		metrics.RecordCacheEvent("miss")
		return nil, false
	}

	metrics.RecordCacheEvent("hit")
	return append([]byte(nil), e.body...), true
}

func (c *MemoryCache) Version(_ context.Context, path string) (Version, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Version{Epoch: c.epoch, Gen: c.versions[path]}, nil
}

// Set drops bodies built at a superseded Version.
func (c *MemoryCache) Set(_ context.Context, path string, v Version, body []byte, ttl time.Duration) error {
	e := entry{body: append([]byte(nil), body...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v != (Version{Epoch: c.epoch, Gen: c.versions[path]}) {
		metrics.RecordCacheEvent("stale")
		return nil
	}
	c.entries[path] = e
	return nil
}

func (c *MemoryCache) Revalidate(_ context.Context, paths ...string) error {
	c.mu.Lock()
	for _, p := range paths {
		c.versions[p]++
		delete(c.entries, p)
	}
	c.mu.Unlock()

	metrics.RecordCacheEvent("invalidate")
	return nil
}

func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	metrics.RecordCacheEvent("purge")
	return nil
}
