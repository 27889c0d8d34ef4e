// Package cache provides the TTL-bounded lookaside cache used for
// high-read, low-write entities (application catalog, user directory, grant
// snapshots). Values are opaque bytes so the in-process and Redis
// implementations stay interchangeable.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a read-through cache. Get returns false on miss; a key whose TTL
// has elapsed is a miss even if it has not been swept yet. Delete must be
// synchronous with respect to the write that triggers it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	Clear(ctx context.Context)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the process-local implementation. Expiry is checked lazily on
// read; the optional janitor only reclaims memory. Not shared across
// processes: writes performed elsewhere leave entries stale until TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		// Expired but not yet swept. Still a miss.
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Memory) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

func (c *Memory) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// StartJanitor sweeps expired entries every interval until ctx is done.
// Correctness never depends on the sweep; it exists for memory hygiene on
// long-running processes.
func (c *Memory) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *Memory) sweep() {
	now := c.now()
	c.mu.Lock()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
