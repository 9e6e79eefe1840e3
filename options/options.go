// Package options provides functional options for constructing a Cache.
package options

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/botirk38/embedcache/chunker"
	"github.com/botirk38/embedcache/compute"
	"github.com/botirk38/embedcache/tiers"
	"github.com/botirk38/embedcache/tiers/durable"
	"github.com/botirk38/embedcache/tiers/remote"
	"github.com/botirk38/embedcache/types"
)

// Option represents a configuration option for a Cache.
type Option func(*Config) error

// Config holds the configuration for building a Cache. Tiers accumulate in
// option order and must run fastest to slowest.
type Config struct {
	Tiers        []tiers.Tier
	Compute      types.ComputeClient
	Retry        *compute.RetryConfig
	Logger       *zap.Logger
	Dimension    int
	MaxTextRunes int
	MaxBatchSize int
	SyncBackfill bool
	Chunker      chunker.Chunker
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Logger:       zap.NewNop(),
		MaxBatchSize: 128,
	}
}

// Apply applies all the given options to the config.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is complete.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return errors.New("at least one tier is required - use WithMemoryTier, WithRedisTier, etc.")
	}
	if c.Compute == nil {
		return errors.New("compute client is required - use WithHTTPCompute, WithOpenAICompute, etc.")
	}
	return nil
}

// WithMemoryTier appends a process-local fast tier with the given eviction
// policy.
func WithMemoryTier(name string, policy types.EvictionPolicy, capacity int, ttl time.Duration) Option {
	return func(cfg *Config) error {
		tierCfg := types.TierConfig{
			Name:     name,
			Latency:  types.LatencyFast,
			Policy:   policy,
			Capacity: capacity,
			TTL:      ttl,
		}
		backend, err := tiers.NewInMemoryBackend(tierCfg)
		if err != nil {
			return err
		}
		cfg.Tiers = append(cfg.Tiers, tiers.Tier{Config: tierCfg, Backend: backend})
		return nil
	}
}

// WithLRUTier appends an LRU-evicting fast tier.
func WithLRUTier(name string, capacity int, ttl time.Duration) Option {
	return WithMemoryTier(name, types.EvictLRU, capacity, ttl)
}

// WithRedisTier appends a Redis-backed medium tier.
func WithRedisTier(name string, config remote.RedisConfig) Option {
	return func(cfg *Config) error {
		backend, err := remote.NewRedisBackend(config)
		if err != nil {
			return err
		}
		cfg.Tiers = append(cfg.Tiers, tiers.Tier{
			Config: types.TierConfig{
				Name:    name,
				Latency: types.LatencyMedium,
				TTL:     config.TTL,
			},
			Backend: backend,
		})
		return nil
	}
}

// WithSQLiteTier appends a SQLite-backed slow durable tier.
func WithSQLiteTier(name string, config durable.SQLiteConfig) Option {
	return func(cfg *Config) error {
		backend, err := durable.NewSQLiteBackend(config)
		if err != nil {
			return err
		}
		cfg.Tiers = append(cfg.Tiers, tiers.Tier{
			Config: types.TierConfig{
				Name:    name,
				Latency: types.LatencySlow,
				TTL:     config.TTL,
			},
			Backend: backend,
		})
		return nil
	}
}

// WithTier appends a pre-configured tier.
func WithTier(config types.TierConfig, backend types.TierBackend) Option {
	return func(cfg *Config) error {
		if backend == nil {
			return errors.New("tier backend cannot be nil")
		}
		cfg.Tiers = append(cfg.Tiers, tiers.Tier{Config: config, Backend: backend})
		return nil
	}
}

// WithComputeClient sets a pre-configured compute client.
func WithComputeClient(client types.ComputeClient) Option {
	return func(cfg *Config) error {
		if client == nil {
			return errors.New("compute client cannot be nil")
		}
		cfg.Compute = client
		return nil
	}
}

// WithHTTPCompute points the cache at a plain HTTP embedding service.
func WithHTTPCompute(endpoint string) Option {
	return func(cfg *Config) error {
		client, err := compute.NewHTTPClient(compute.HTTPConfig{Endpoint: endpoint})
		if err != nil {
			return err
		}
		cfg.Compute = client
		return nil
	}
}

// WithOpenAICompute uses OpenAI's embeddings API as the compute backend.
func WithOpenAICompute(config compute.OpenAIConfig) Option {
	return func(cfg *Config) error {
		client, err := compute.NewOpenAIClient(config)
		if err != nil {
			return err
		}
		cfg.Compute = client
		return nil
	}
}

// WithGeminiCompute uses Google's Gemini API as the compute backend.
func WithGeminiCompute(config compute.GeminiConfig) Option {
	return func(cfg *Config) error {
		client, err := compute.NewGeminiClient(context.Background(), config)
		if err != nil {
			return err
		}
		cfg.Compute = client
		return nil
	}
}

// WithRetry wraps the compute client with the given retry policy at
// construction time.
func WithRetry(config compute.RetryConfig) Option {
	return func(cfg *Config) error {
		cfg.Retry = &config
		return nil
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *Config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.Logger = logger
		return nil
	}
}

// WithDimension fixes the embedding dimension. Every tier read and compute
// response is validated against it.
func WithDimension(dimension int) Option {
	return func(cfg *Config) error {
		if dimension <= 0 {
			return errors.New("dimension must be positive")
		}
		cfg.Dimension = dimension
		return nil
	}
}

// WithTextCap overrides the rune cap applied before key derivation and
// compute.
func WithTextCap(maxRunes int) Option {
	return func(cfg *Config) error {
		if maxRunes <= 0 {
			return errors.New("text cap must be positive")
		}
		cfg.MaxTextRunes = maxRunes
		return nil
	}
}

// WithMaxBatchSize caps the number of texts per compute call.
func WithMaxBatchSize(n int) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return errors.New("max batch size must be positive")
		}
		cfg.MaxBatchSize = n
		return nil
	}
}

// WithSynchronousBackfill makes backfills complete before a lookup returns.
// The default is fire-and-forget.
func WithSynchronousBackfill() Option {
	return func(cfg *Config) error {
		cfg.SyncBackfill = true
		return nil
	}
}

// WithChunking enables document embedding with the given chunk parameters.
func WithChunking(config chunker.Config) Option {
	return func(cfg *Config) error {
		c, err := chunker.NewFixedOverlap(config)
		if err != nil {
			return err
		}
		cfg.Chunker = c
		return nil
	}
}
