// Package tiers implements the ordered cache hierarchy: a sequential probe
// across tier backends, fastest first, with per-tier failure isolation.
package tiers

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/botirk38/embedcache/types"
)

// Tier pairs a backend with its configuration.
type Tier struct {
	Config  types.TierConfig
	Backend types.TierBackend
}

// Store probes an ordered list of tiers. A transient failure in one tier is
// logged and treated as a miss for that tier only; the probe continues.
type Store struct {
	tiers     []Tier
	dimension int
	logger    *zap.Logger

	hits          []atomic.Uint64
	probeFailures []atomic.Uint64
	writeFailures []atomic.Uint64
}

// TierStats is a point-in-time snapshot of one tier's counters.
type TierStats struct {
	Name          string
	Hits          uint64
	ProbeFailures uint64
	WriteFailures uint64
	Evictions     uint64
	Drops         uint64
}

// NewStore validates the tier chain and returns a Store. Tiers must be
// non-empty, uniquely named, and ordered by non-decreasing latency class.
// dimension, when positive, is enforced on every read.
func NewStore(tiers []Tier, dimension int, logger *zap.Logger) (*Store, error) {
	if len(tiers) == 0 {
		return nil, errors.New("at least one tier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]bool, len(tiers))
	for i, tier := range tiers {
		if tier.Backend == nil {
			return nil, errors.New("tier backend cannot be nil")
		}
		if tier.Config.Name == "" {
			return nil, errors.New("tier name is required")
		}
		if seen[tier.Config.Name] {
			return nil, errors.New("duplicate tier name: " + tier.Config.Name)
		}
		seen[tier.Config.Name] = true
		if i > 0 && tier.Config.Latency < tiers[i-1].Config.Latency {
			return nil, errors.New("tiers must be ordered fastest to slowest")
		}
	}

	return &Store{
		tiers:         tiers,
		dimension:     dimension,
		logger:        logger,
		hits:          make([]atomic.Uint64, len(tiers)),
		probeFailures: make([]atomic.Uint64, len(tiers)),
		writeFailures: make([]atomic.Uint64, len(tiers)),
	}, nil
}

// Len returns the number of tiers.
func (s *Store) Len() int {
	return len(s.tiers)
}

// Name returns the name of tier i.
func (s *Store) Name(i int) string {
	return s.tiers[i].Config.Name
}

// Lookup probes tiers in order and returns the first valid hit along with
// the index of the tier that served it. Probe errors and invalid entries
// count as per-tier misses.
func (s *Store) Lookup(ctx context.Context, key types.CacheKey) (types.Entry, int, bool) {
	for i, tier := range s.tiers {
		entry, found, err := tier.Backend.Get(ctx, key)
		if err != nil {
			s.probeFailures[i].Add(1)
			s.logger.Warn("tier probe failed",
				zap.String("tier", tier.Config.Name),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		if !found {
			continue
		}
		if !s.acceptable(entry) {
			// Corrupt or wrong-dimension entry; purge and keep probing.
			_ = tier.Backend.Delete(ctx, key)
			s.logger.Warn("tier returned invalid entry",
				zap.String("tier", tier.Config.Name),
				zap.String("key", key),
				zap.Int("dimension", entry.Dimension),
				zap.Int("vector_len", len(entry.Vector)))
			continue
		}
		s.hits[i].Add(1)
		return entry, i, true
	}
	return types.Entry{}, -1, false
}

func (s *Store) acceptable(entry types.Entry) bool {
	if !entry.Valid() {
		return false
	}
	return s.dimension <= 0 || entry.Dimension == s.dimension
}

// WriteToTier upserts an entry into tier i. Failures are counted and
// logged; the returned error is advisory and never aborts the pipeline.
func (s *Store) WriteToTier(ctx context.Context, i int, entry types.Entry) error {
	err := s.tiers[i].Backend.Set(ctx, entry.Key, entry)
	if err != nil {
		s.writeFailures[i].Add(1)
		s.logger.Warn("tier write failed",
			zap.String("tier", s.tiers[i].Config.Name),
			zap.String("key", entry.Key),
			zap.Error(err))
	}
	return err
}

// Flush clears every tier. The first error is returned but all tiers are
// attempted.
func (s *Store) Flush(ctx context.Context) error {
	var firstErr error
	for _, tier := range s.tiers {
		if err := tier.Backend.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every tier backend.
func (s *Store) Close() error {
	var firstErr error
	for _, tier := range s.tiers {
		if err := tier.Backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Snapshot returns per-tier counters, merging in backend-local eviction
// bookkeeping where the backend exposes it.
func (s *Store) Snapshot() []TierStats {
	stats := make([]TierStats, len(s.tiers))
	for i, tier := range s.tiers {
		st := TierStats{
			Name:          tier.Config.Name,
			Hits:          s.hits[i].Load(),
			ProbeFailures: s.probeFailures[i].Load(),
			WriteFailures: s.writeFailures[i].Load(),
		}
		if tc, ok := tier.Backend.(types.TierCounters); ok {
			st.Evictions, st.Drops = tc.Counters()
		}
		stats[i] = st
	}
	return stats
}
