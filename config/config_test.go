package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/botirk38/embedcache/options"
)

const sampleYAML = `
dimension: 384
text_cap: 10000
max_batch: 64
sync_backfill: true

compute:
  kind: http
  endpoint: http://localhost:8080/embed

retry:
  max_attempts: 5
  base_delay: 500ms
  max_delay: 10s

chunking:
  chunk_size: 256
  overlap: 32

tiers:
  - kind: memory
    name: fast
    policy: lru
    capacity: 1024
    ttl: 5m
  - kind: sqlite
    name: durable
    path: /tmp/embeddings.db
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.Dimension != 384 {
		t.Errorf("dimension = %d, want 384", f.Dimension)
	}
	if f.TextCap != 10000 {
		t.Errorf("text_cap = %d, want 10000", f.TextCap)
	}
	if !f.SyncBackfill {
		t.Error("sync_backfill not set")
	}
	if f.Compute.Kind != "http" || f.Compute.Endpoint != "http://localhost:8080/embed" {
		t.Errorf("unexpected compute config %+v", f.Compute)
	}
	if f.Retry == nil || f.Retry.MaxAttempts != 5 || f.Retry.BaseDelay != "500ms" {
		t.Errorf("unexpected retry config %+v", f.Retry)
	}
	if f.Chunking == nil || f.Chunking.ChunkSize != 256 {
		t.Errorf("unexpected chunking config %+v", f.Chunking)
	}
	if len(f.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(f.Tiers))
	}
	if f.Tiers[0].Kind != "memory" || f.Tiers[0].Policy != "lru" || f.Tiers[0].TTL != "5m" {
		t.Errorf("unexpected first tier %+v", f.Tiers[0])
	}
	if f.Tiers[1].Kind != "sqlite" || f.Tiers[1].Path != "/tmp/embeddings.db" {
		t.Errorf("unexpected second tier %+v", f.Tiers[1])
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("tiers: {not: [valid")); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Dimension != 384 {
		t.Errorf("dimension = %d, want 384", f.Dimension)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOptions(t *testing.T) {
	f := &File{
		Dimension: 128,
		Compute:   Compute{Kind: "http", Endpoint: "http://localhost:9999/embed"},
		Tiers: []Tier{
			{Kind: "memory", Name: "fast", Policy: "lru", Capacity: 16},
		},
	}

	opts, err := f.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	cfg := options.NewConfig()
	if err := cfg.Apply(opts...); err != nil {
		t.Fatalf("applying options: %v", err)
	}
	if cfg.Dimension != 128 {
		t.Errorf("dimension = %d, want 128", cfg.Dimension)
	}
	if len(cfg.Tiers) != 1 || cfg.Tiers[0].Config.Name != "fast" {
		t.Errorf("unexpected tiers %+v", cfg.Tiers)
	}
	if cfg.Compute == nil {
		t.Error("compute client not built")
	}
}

func TestOptions_UnknownKinds(t *testing.T) {
	f := &File{
		Compute: Compute{Kind: "http", Endpoint: "http://localhost/embed"},
		Tiers:   []Tier{{Kind: "memcached", Name: "x"}},
	}
	if _, err := f.Options(); err == nil || !strings.Contains(err.Error(), "unknown tier kind") {
		t.Errorf("expected unknown tier kind error, got %v", err)
	}

	f = &File{Compute: Compute{Kind: "cohere"}}
	if _, err := f.Options(); err == nil || !strings.Contains(err.Error(), "unknown compute kind") {
		t.Errorf("expected unknown compute kind error, got %v", err)
	}
}

func TestOptions_BadDuration(t *testing.T) {
	f := &File{
		Compute: Compute{Kind: "http", Endpoint: "http://localhost/embed"},
		Tiers:   []Tier{{Kind: "memory", Name: "fast", TTL: "five minutes"}},
	}
	if _, err := f.Options(); err == nil {
		t.Error("expected error for malformed ttl")
	}
}
