// Package config loads a cache topology from YAML and turns it into the
// option list New consumes. Programmatic construction through the options
// package remains the primary API; this is for deployments that keep tier
// layout in a config file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/botirk38/embedcache/chunker"
	"github.com/botirk38/embedcache/compute"
	"github.com/botirk38/embedcache/options"
	"github.com/botirk38/embedcache/tiers/durable"
	"github.com/botirk38/embedcache/tiers/remote"
	"github.com/botirk38/embedcache/types"
)

// File is the YAML document root.
type File struct {
	Dimension    int  `yaml:"dimension"`
	TextCap      int  `yaml:"text_cap"`
	MaxBatch     int  `yaml:"max_batch"`
	SyncBackfill bool `yaml:"sync_backfill"`

	Compute  Compute   `yaml:"compute"`
	Retry    *Retry    `yaml:"retry"`
	Chunking *Chunking `yaml:"chunking"`
	Tiers    []Tier    `yaml:"tiers"`
}

// Compute selects and configures the compute backend.
type Compute struct {
	// Kind is one of "http", "openai", "gemini".
	Kind     string `yaml:"kind"`
	Endpoint string `yaml:"endpoint"`
	BaseURL  string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key, so
	// secrets stay out of the config file.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Retry overrides the default retry policy. Durations are Go duration
// strings ("1s", "2m").
type Retry struct {
	MaxAttempts   int    `yaml:"max_attempts"`
	BaseDelay     string `yaml:"base_delay"`
	MaxDelay      string `yaml:"max_delay"`
	SingleTimeout string `yaml:"single_timeout"`
	BatchTimeout  string `yaml:"batch_timeout"`
}

// Chunking enables document embedding.
type Chunking struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// Tier is one stage of the hierarchy, fastest first.
type Tier struct {
	// Kind is one of "memory", "redis", "sqlite".
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Policy   string `yaml:"policy"`
	Capacity int    `yaml:"capacity"`
	TTL      string `yaml:"ttl"`

	// URL is the Redis connection string for redis tiers.
	URL string `yaml:"url"`

	// Path is the database file for sqlite tiers.
	Path string `yaml:"path"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config bytes.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &f, nil
}

func parseDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

// Options converts the parsed file into the option list for New.
func (f *File) Options() ([]options.Option, error) {
	var opts []options.Option

	if f.Dimension > 0 {
		opts = append(opts, options.WithDimension(f.Dimension))
	}
	if f.TextCap > 0 {
		opts = append(opts, options.WithTextCap(f.TextCap))
	}
	if f.MaxBatch > 0 {
		opts = append(opts, options.WithMaxBatchSize(f.MaxBatch))
	}
	if f.SyncBackfill {
		opts = append(opts, options.WithSynchronousBackfill())
	}

	for _, tier := range f.Tiers {
		opt, err := tier.option()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	computeOpt, err := f.Compute.option()
	if err != nil {
		return nil, err
	}
	opts = append(opts, computeOpt)

	if f.Retry != nil {
		retryOpt, err := f.Retry.option()
		if err != nil {
			return nil, err
		}
		opts = append(opts, retryOpt)
	}

	if f.Chunking != nil {
		opts = append(opts, options.WithChunking(chunker.Config{
			ChunkSize: f.Chunking.ChunkSize,
			Overlap:   f.Chunking.Overlap,
		}))
	}

	return opts, nil
}

func (t Tier) option() (options.Option, error) {
	ttl, err := parseDuration(t.TTL, "tier ttl")
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case "memory", "":
		return options.WithMemoryTier(t.Name, types.EvictionPolicy(t.Policy), t.Capacity, ttl), nil
	case "redis":
		return options.WithRedisTier(t.Name, remote.RedisConfig{
			ConnectionString: t.URL,
			TTL:              ttl,
		}), nil
	case "sqlite":
		return options.WithSQLiteTier(t.Name, durable.SQLiteConfig{
			Path: t.Path,
			TTL:  ttl,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tier kind %q", t.Kind)
	}
}

func (c Compute) option() (options.Option, error) {
	apiKey := ""
	if c.APIKeyEnv != "" {
		apiKey = os.Getenv(c.APIKeyEnv)
	}

	switch c.Kind {
	case "http", "":
		return options.WithHTTPCompute(c.Endpoint), nil
	case "openai":
		return options.WithOpenAICompute(compute.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: c.BaseURL,
		}), nil
	case "gemini":
		return options.WithGeminiCompute(compute.GeminiConfig{
			APIKey: apiKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown compute kind %q", c.Kind)
	}
}

func (r Retry) option() (options.Option, error) {
	base, err := parseDuration(r.BaseDelay, "retry base_delay")
	if err != nil {
		return nil, err
	}
	maxDelay, err := parseDuration(r.MaxDelay, "retry max_delay")
	if err != nil {
		return nil, err
	}
	single, err := parseDuration(r.SingleTimeout, "retry single_timeout")
	if err != nil {
		return nil, err
	}
	batch, err := parseDuration(r.BatchTimeout, "retry batch_timeout")
	if err != nil {
		return nil, err
	}

	return options.WithRetry(compute.RetryConfig{
		MaxAttempts:   r.MaxAttempts,
		BaseDelay:     base,
		MaxDelay:      maxDelay,
		SingleTimeout: single,
		BatchTimeout:  batch,
	}), nil
}
