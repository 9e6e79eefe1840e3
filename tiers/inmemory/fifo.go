package inmemory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botirk38/embedcache/types"
)

// FIFOBackend implements TierBackend with first-in-first-out eviction.
// Insertion order is tracked in a queue; updates do not change a key's
// position.
type FIFOBackend struct {
	mu        *sync.Mutex
	entries   map[types.CacheKey]timedEntry
	queue     []types.CacheKey
	capacity  int
	ttl       time.Duration
	evictions atomic.Uint64
}

// NewFIFOBackend creates a FIFO backend with the given capacity and TTL.
func NewFIFOBackend(config types.TierConfig) (*FIFOBackend, error) {
	return &FIFOBackend{
		mu:       &sync.Mutex{},
		entries:  make(map[types.CacheKey]timedEntry),
		queue:    make([]types.CacheKey, 0, config.Capacity),
		capacity: config.Capacity,
		ttl:      config.TTL,
	}, nil
}

// Set stores an entry, evicting the oldest entry when full.
func (b *FIFOBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	te := timedEntry{entry: entry}
	if b.ttl > 0 {
		te.expiresAt = time.Now().Add(b.ttl)
	}

	if _, ok := b.entries[key]; ok {
		b.entries[key] = te
		return nil
	}

	if b.capacity > 0 && len(b.entries) >= b.capacity {
		oldest := b.queue[0]
		b.queue = b.queue[1:]
		delete(b.entries, oldest)
		b.evictions.Add(1)
	}

	b.entries[key] = te
	b.queue = append(b.queue, key)
	return nil
}

// Get retrieves an entry.
func (b *FIFOBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.entries[key]
	if !ok {
		return types.Entry{}, false, nil
	}
	if te.expired(time.Now()) {
		b.removeLocked(key)
		return types.Entry{}, false, nil
	}
	return te.entry, true, nil
}

// Delete removes an entry.
func (b *FIFOBackend) Delete(ctx context.Context, key types.CacheKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(key)
	return nil
}

// removeLocked deletes key from both the map and the queue. Caller holds
// the lock.
func (b *FIFOBackend) removeLocked(key types.CacheKey) {
	delete(b.entries, key)
	for i, k := range b.queue {
		if k == key {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			break
		}
	}
}

// Contains checks for key presence.
func (b *FIFOBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	te, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	if te.expired(time.Now()) {
		b.removeLocked(key)
		return false, nil
	}
	return true, nil
}

// Flush clears all entries.
func (b *FIFOBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[types.CacheKey]timedEntry)
	b.queue = b.queue[:0]
	return nil
}

// Len returns the number of entries.
func (b *FIFOBackend) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries), nil
}

// Counters reports eviction bookkeeping.
func (b *FIFOBackend) Counters() (evictions, drops uint64) {
	return b.evictions.Load(), 0
}

// Close is a no-op for in-memory backends.
func (b *FIFOBackend) Close() error {
	return nil
}
