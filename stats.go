package embedcache

import "github.com/botirk38/embedcache/tiers"

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	// Tiers holds per-tier hit, failure, and eviction counters in probe
	// order.
	Tiers []tiers.TierStats

	// Misses counts lookups that fell through every tier.
	Misses uint64

	// InFlight is the number of computations currently running.
	InFlight int

	// Coalesced counts requests that piggybacked on an in-flight
	// computation instead of triggering their own.
	Coalesced uint64

	// BackfillFailures counts failed tier writes during backfill.
	BackfillFailures uint64

	// ComputeRetries counts retry attempts against the compute service.
	ComputeRetries uint64
}

// retryCounter is implemented by compute clients that track retries.
type retryCounter interface {
	Retries() uint64
}

// Stats returns current cache counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Tiers:            c.store.Snapshot(),
		Misses:           c.misses.Load(),
		InFlight:         c.registry.Len(),
		Coalesced:        c.registry.Coalesced(),
		BackfillFailures: c.backfill.Failures(),
	}
	if rc, ok := c.compute.(retryCounter); ok {
		s.ComputeRetries = rc.Retries()
	}
	return s
}
