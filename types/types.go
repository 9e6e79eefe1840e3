// Package types holds the shared types for the embedcache module: cache
// entries, tier configuration, and the interfaces implemented by tier
// backends and compute clients.
package types

import (
	"context"
	"time"
)

// CacheKey is an opaque content-derived key. Identical (text, model) pairs
// always map to the same key; see the keys package for derivation rules.
type CacheKey = string

// Entry is an immutable cached embedding. Vector length always equals
// Dimension; readers validate this and treat violations as misses.
type Entry struct {
	Key       CacheKey  `json:"key"`
	Vector    []float32 `json:"vector"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the entry satisfies the vector/dimension invariant.
func (e Entry) Valid() bool {
	return e.Dimension > 0 && len(e.Vector) == e.Dimension
}

// LatencyClass orders tiers within a TieredStore. Lookups always probe in
// ascending latency order.
type LatencyClass int

const (
	LatencyFast LatencyClass = iota
	LatencyMedium
	LatencySlow
)

func (l LatencyClass) String() string {
	switch l {
	case LatencyFast:
		return "fast"
	case LatencyMedium:
		return "medium"
	case LatencySlow:
		return "slow"
	}
	return "unknown"
}

// EvictionPolicy selects what a capacity-bounded tier does when full.
type EvictionPolicy string

const (
	// EvictLRU removes the entry with the oldest last-access time.
	EvictLRU EvictionPolicy = "lru"
	// EvictLFU removes the entry with the lowest access count.
	EvictLFU EvictionPolicy = "lfu"
	// EvictFIFO removes the entry with the oldest creation time.
	EvictFIFO EvictionPolicy = "fifo"
	// EvictNone drops new writes when the tier is full. The drop is
	// recorded in counters, not surfaced as an error.
	EvictNone EvictionPolicy = "none"
)

// TierConfig describes one stage of the cache hierarchy.
type TierConfig struct {
	Name     string
	Latency  LatencyClass
	Policy   EvictionPolicy
	Capacity int           // 0 means unbounded
	TTL      time.Duration // 0 means no expiry
}

// TierBackend is the storage contract implemented by each tier. Backends
// backed by external services (Redis, SQLite) may return errors from any
// method; the tiered store treats those as per-tier misses.
type TierBackend interface {
	// Get retrieves an entry by key.
	Get(ctx context.Context, key CacheKey) (Entry, bool, error)

	// Set stores an entry, evicting per policy if the tier is full.
	// Upserts are idempotent.
	Set(ctx context.Context, key CacheKey, entry Entry) error

	// Delete removes an entry by key.
	Delete(ctx context.Context, key CacheKey) error

	// Contains checks for key presence without affecting recency.
	Contains(ctx context.Context, key CacheKey) (bool, error)

	// Flush clears all entries.
	Flush(ctx context.Context) error

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// TierCounters is optionally implemented by backends that do their own
// eviction bookkeeping. Remote tiers delegate eviction to the service and
// do not implement it.
type TierCounters interface {
	// Counters returns the number of evictions and dropped writes since
	// the backend was created.
	Counters() (evictions, drops uint64)
}

// ComputeClient generates embeddings for a batch of texts. Output order
// matches input order. Implementations return compute.Error for transient
// failures and compute.ValidationError for contract violations.
type ComputeClient interface {
	// ComputeBatch embeds texts with the given model.
	ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error)

	// Close frees any resources held by the client.
	Close()
}
