package options

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/botirk38/embedcache/types"
)

type stubBackend struct{}

func (stubBackend) Get(ctx context.Context, key types.CacheKey) (types.Entry, bool, error) {
	return types.Entry{}, false, nil
}
func (stubBackend) Set(ctx context.Context, key types.CacheKey, entry types.Entry) error {
	return nil
}
func (stubBackend) Delete(ctx context.Context, key types.CacheKey) error { return nil }
func (stubBackend) Contains(ctx context.Context, key types.CacheKey) (bool, error) {
	return false, nil
}
func (stubBackend) Flush(ctx context.Context) error      { return nil }
func (stubBackend) Len(ctx context.Context) (int, error) { return 0, nil }
func (stubBackend) Close() error                         { return nil }

type stubCompute struct{}

func (stubCompute) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (stubCompute) Close() {}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Logger == nil {
		t.Error("expected a default no-op logger")
	}
	if cfg.MaxBatchSize != 128 {
		t.Errorf("default max batch size = %d, want 128", cfg.MaxBatchSize)
	}
	if cfg.SyncBackfill {
		t.Error("backfill should default to asynchronous")
	}
}

func TestApply(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Apply(
		WithTier(types.TierConfig{Name: "fast", Latency: types.LatencyFast}, stubBackend{}),
		WithComputeClient(stubCompute{}),
		WithDimension(768),
		WithTextCap(1000),
		WithMaxBatchSize(32),
		WithSynchronousBackfill(),
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(cfg.Tiers) != 1 || cfg.Tiers[0].Config.Name != "fast" {
		t.Errorf("unexpected tiers %+v", cfg.Tiers)
	}
	if cfg.Dimension != 768 || cfg.MaxTextRunes != 1000 || cfg.MaxBatchSize != 32 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !cfg.SyncBackfill {
		t.Error("synchronous backfill not set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApply_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil backend", WithTier(types.TierConfig{Name: "x"}, nil)},
		{"nil compute", WithComputeClient(nil)},
		{"nil logger", WithLogger(nil)},
		{"zero dimension", WithDimension(0)},
		{"negative text cap", WithTextCap(-1)},
		{"zero batch size", WithMaxBatchSize(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewConfig().Apply(tt.opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty config")
	}

	if err := cfg.Apply(WithMemoryTier("fast", types.EvictLRU, 16, time.Minute)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without a compute client")
	}

	if err := cfg.Apply(WithComputeClient(stubCompute{})); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestWithLogger(t *testing.T) {
	cfg := NewConfig()
	logger := zap.NewExample()
	if err := cfg.Apply(WithLogger(logger)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.Logger != logger {
		t.Error("logger not applied")
	}
}
