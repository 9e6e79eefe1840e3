// Package inmemory provides process-local tier backends with LRU, LFU,
// FIFO, and drop-on-full eviction policies. All backends guard their
// bookkeeping with a mutex so read-evict-write sequences stay consistent
// under concurrent access.
package inmemory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/botirk38/embedcache/types"
)

// timedEntry pairs an entry with its lazy-expiry deadline. A zero deadline
// means the entry never expires.
type timedEntry struct {
	entry     types.Entry
	expiresAt time.Time
}

func (te timedEntry) expired(now time.Time) bool {
	return !te.expiresAt.IsZero() && now.After(te.expiresAt)
}

// LRUBackend implements TierBackend with least-recently-used eviction.
type LRUBackend struct {
	mu        *sync.Mutex
	cache     *lru.Cache[types.CacheKey, timedEntry]
	ttl       time.Duration
	evictions atomic.Uint64
}

// NewLRUBackend creates an LRU backend with the given capacity and TTL.
func NewLRUBackend(config types.TierConfig) (*LRUBackend, error) {
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = 1024
	}
	cache, err := lru.New[types.CacheKey, timedEntry](capacity)
	if err != nil {
		return nil, err
	}

	return &LRUBackend{
		mu:    &sync.Mutex{},
		cache: cache,
		ttl:   config.TTL,
	}, nil
}

// Set stores an entry, evicting the least recently used entry when full.
func (b *LRUBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	te := timedEntry{entry: entry}
	if b.ttl > 0 {
		te.expiresAt = time.Now().Add(b.ttl)
	}
	if evicted := b.cache.Add(key, te); evicted {
		b.evictions.Add(1)
	}
	return nil
}

// Get retrieves an entry, refreshing its recency. Expired entries are
// removed and reported as misses.
func (b *LRUBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.cache.Get(key)
	if !ok {
		return types.Entry{}, false, nil
	}
	if te.expired(time.Now()) {
		b.cache.Remove(key)
		return types.Entry{}, false, nil
	}
	return te.entry, true, nil
}

// Delete removes an entry.
func (b *LRUBackend) Delete(ctx context.Context, key types.CacheKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Remove(key)
	return nil
}

// Contains checks for key presence without affecting recency.
func (b *LRUBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.cache.Peek(key)
	if !ok {
		return false, nil
	}
	if te.expired(time.Now()) {
		b.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

// Flush clears all entries.
func (b *LRUBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Purge()
	return nil
}

// Len returns the number of entries.
func (b *LRUBackend) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cache.Len(), nil
}

// Counters reports eviction bookkeeping.
func (b *LRUBackend) Counters() (evictions, drops uint64) {
	return b.evictions.Load(), 0
}

// Close is a no-op for in-memory backends.
func (b *LRUBackend) Close() error {
	return nil
}
