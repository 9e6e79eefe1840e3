package tiers

import (
	"errors"

	"github.com/botirk38/embedcache/tiers/inmemory"
	"github.com/botirk38/embedcache/types"
)

// ErrUnsupportedPolicy is returned for an eviction policy with no backend.
var ErrUnsupportedPolicy = errors.New("unsupported eviction policy")

// NewInMemoryBackend creates a process-local backend for the configured
// eviction policy. An empty policy defaults to LRU.
func NewInMemoryBackend(config types.TierConfig) (types.TierBackend, error) {
	switch config.Policy {
	case types.EvictLRU, "":
		return inmemory.NewLRUBackend(config)
	case types.EvictLFU:
		return inmemory.NewLFUBackend(config)
	case types.EvictFIFO:
		return inmemory.NewFIFOBackend(config)
	case types.EvictNone:
		return inmemory.NewStaticBackend(config)
	default:
		return nil, ErrUnsupportedPolicy
	}
}
