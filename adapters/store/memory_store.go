package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// sweepEvery is the number of writes between scans for expired entries.
const sweepEvery = 64

// MemoryCache is an in-memory NonceCache for single-process deployments and tests.
// Expired entries are dropped on access and by a periodic sweep on writes.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	writes  int
	now     func() time.Time
}

// NewMemoryCache creates an in-memory nonce cache. A nil clock means time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

var _ ports.NonceCache = (*MemoryCache)(nil)

// SetNX stores the value unless a live entry exists
func (c *MemoryCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}

	c.entries[key] = cacheEntry{value: value, expiresAt: now.Add(ttl)}
	c.writes++
	if c.writes%sweepEvery == 0 {
		c.sweep(now)
	}
	return true, nil
}

// GetDel reads and removes the key
func (c *MemoryCache) GetDel(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	delete(c.entries, key)
	if !ok || !c.now().Before(e.expiresAt) {
		return "", core.ErrNotFound
	}
	return e.value, nil
}

// sweep drops every expired entry. Caller holds mu.
func (c *MemoryCache) sweep(now time.Time) {
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
