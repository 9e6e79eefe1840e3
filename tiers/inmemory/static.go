package inmemory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botirk38/embedcache/types"
)

// StaticBackend implements TierBackend with the "none" eviction policy:
// once full, new writes are dropped rather than evicting. Pre-existing
// entries can still be updated in place. Dropped writes are counted, not
// errored — the cache is best-effort.
type StaticBackend struct {
	mu       *sync.Mutex
	entries  map[types.CacheKey]timedEntry
	capacity int
	ttl      time.Duration
	drops    atomic.Uint64
}

// NewStaticBackend creates a drop-on-full backend with the given capacity
// and TTL.
func NewStaticBackend(config types.TierConfig) (*StaticBackend, error) {
	return &StaticBackend{
		mu:       &sync.Mutex{},
		entries:  make(map[types.CacheKey]timedEntry),
		capacity: config.Capacity,
		ttl:      config.TTL,
	}, nil
}

// Set stores an entry unless the tier is full and the key is new, in which
// case the write is silently dropped.
func (b *StaticBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	te := timedEntry{entry: entry}
	if b.ttl > 0 {
		te.expiresAt = time.Now().Add(b.ttl)
	}

	if _, ok := b.entries[key]; !ok && b.capacity > 0 && len(b.entries) >= b.capacity {
		b.drops.Add(1)
		return nil
	}

	b.entries[key] = te
	return nil
}

// Get retrieves an entry.
func (b *StaticBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.entries[key]
	if !ok {
		return types.Entry{}, false, nil
	}
	if te.expired(time.Now()) {
		delete(b.entries, key)
		return types.Entry{}, false, nil
	}
	return te.entry, true, nil
}

// Delete removes an entry.
func (b *StaticBackend) Delete(ctx context.Context, key types.CacheKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// Contains checks for key presence.
func (b *StaticBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	if te.expired(time.Now()) {
		delete(b.entries, key)
		return false, nil
	}
	return true, nil
}

// Flush clears all entries.
func (b *StaticBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[types.CacheKey]timedEntry)
	return nil
}

// Len returns the number of entries.
func (b *StaticBackend) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries), nil
}

// Counters reports drop bookkeeping.
func (b *StaticBackend) Counters() (evictions, drops uint64) {
	return 0, b.drops.Load()
}

// Close is a no-op for in-memory backends.
func (b *StaticBackend) Close() error {
	return nil
}
