package inmemory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botirk38/embedcache/types"
)

// lfuEntry wraps an entry with access-frequency tracking.
type lfuEntry struct {
	timedEntry
	frequency int
}

// LFUBackend implements TierBackend with least-frequently-used eviction.
// Frequency counts increment on every read and write of a key.
type LFUBackend struct {
	mu        *sync.Mutex
	entries   map[types.CacheKey]*lfuEntry
	capacity  int
	ttl       time.Duration
	evictions atomic.Uint64
}

// NewLFUBackend creates an LFU backend with the given capacity and TTL.
func NewLFUBackend(config types.TierConfig) (*LFUBackend, error) {
	return &LFUBackend{
		mu:       &sync.Mutex{},
		entries:  make(map[types.CacheKey]*lfuEntry),
		capacity: config.Capacity,
		ttl:      config.TTL,
	}, nil
}

// Set stores an entry, evicting the least frequently used entry when full.
func (b *LFUBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expiresAt time.Time
	if b.ttl > 0 {
		expiresAt = time.Now().Add(b.ttl)
	}

	if existing, ok := b.entries[key]; ok {
		existing.entry = entry
		existing.expiresAt = expiresAt
		existing.frequency++
		return nil
	}

	if b.capacity > 0 && len(b.entries) >= b.capacity {
		b.evictLFU()
	}

	b.entries[key] = &lfuEntry{
		timedEntry: timedEntry{entry: entry, expiresAt: expiresAt},
		frequency:  1,
	}
	return nil
}

// evictLFU removes the entry with the lowest frequency. Caller holds the lock.
func (b *LFUBackend) evictLFU() {
	var victim types.CacheKey
	minFreq := -1
	for key, e := range b.entries {
		if minFreq == -1 || e.frequency < minFreq {
			minFreq = e.frequency
			victim = key
		}
	}
	if minFreq != -1 {
		delete(b.entries, victim)
		b.evictions.Add(1)
	}
}

// Get retrieves an entry and increments its frequency.
func (b *LFUBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return types.Entry{}, false, nil
	}
	if e.expired(time.Now()) {
		delete(b.entries, key)
		return types.Entry{}, false, nil
	}
	e.frequency++
	return e.entry, true, nil
}

// Delete removes an entry.
func (b *LFUBackend) Delete(ctx context.Context, key types.CacheKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// Contains checks for key presence without touching the frequency count.
func (b *LFUBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		delete(b.entries, key)
		return false, nil
	}
	return true, nil
}

// Flush clears all entries.
func (b *LFUBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[types.CacheKey]*lfuEntry)
	return nil
}

// Len returns the number of entries.
func (b *LFUBackend) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries), nil
}

// Counters reports eviction bookkeeping.
func (b *LFUBackend) Counters() (evictions, drops uint64) {
	return b.evictions.Load(), 0
}

// Close is a no-op for in-memory backends.
func (b *LFUBackend) Close() error {
	return nil
}
