// Package embedcache implements a layered embedding cache with request
// coalescing and backfill. Lookups probe an ordered chain of tiers, fastest
// first; on a total miss, concurrent requests for the same key are merged
// into a single compute call, and resolved vectors are written back into
// every faster tier so later lookups hit higher up the chain.
package embedcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/botirk38/embedcache/chunker"
	"github.com/botirk38/embedcache/compute"
	"github.com/botirk38/embedcache/inflight"
	"github.com/botirk38/embedcache/keys"
	"github.com/botirk38/embedcache/options"
	"github.com/botirk38/embedcache/tiers"
	"github.com/botirk38/embedcache/types"
)

// OriginCompute marks a result that came from the compute service rather
// than a tier.
const OriginCompute = "compute"

// chunkConcurrency bounds parallel compute calls within one batch request.
const chunkConcurrency = 4

// Result is a resolved embedding plus where it came from: the name of the
// tier that served it, or OriginCompute for a fresh computation.
type Result struct {
	Vector []float32
	Origin string
}

// Cache is the composition root. Construct with New and share freely; all
// methods are safe for concurrent use.
type Cache struct {
	deriver  keys.Deriver
	store    *tiers.Store
	compute  types.ComputeClient
	registry *inflight.Registry
	backfill *backfillWriter
	chunker  chunker.Chunker
	logger   *zap.Logger

	dimension int
	maxBatch  int
	misses    atomic.Uint64
}

// New creates a Cache with functional options. At least one tier and a
// compute client are required. The compute client is always wrapped with
// the retry policy (defaults per options.WithRetry when not given).
func New(opts ...options.Option) (*Cache, error) {
	cfg := options.NewConfig()

	if err := cfg.Apply(opts...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := tiers.NewStore(cfg.Tiers, cfg.Dimension, cfg.Logger)
	if err != nil {
		return nil, err
	}

	retryCfg := compute.RetryConfig{}
	if cfg.Retry != nil {
		retryCfg = *cfg.Retry
	}

	return &Cache{
		deriver:   keys.NewDeriver(cfg.MaxTextRunes),
		store:     store,
		compute:   compute.NewRetrying(cfg.Compute, retryCfg),
		registry:  inflight.NewRegistry(),
		backfill:  newBackfillWriter(store, cfg.Logger, cfg.SyncBackfill),
		chunker:   cfg.Chunker,
		logger:    cfg.Logger,
		dimension: cfg.Dimension,
		maxBatch:  cfg.MaxBatchSize,
	}, nil
}

// GetEmbedding returns the embedding for (text, model), computing it on a
// total miss.
func (c *Cache) GetEmbedding(ctx context.Context, text, model string) ([]float32, error) {
	result, err := c.Lookup(ctx, text, model)
	if err != nil {
		return nil, err
	}
	return result.Vector, nil
}

// Lookup is GetEmbedding with origin attribution.
func (c *Cache) Lookup(ctx context.Context, text, model string) (Result, error) {
	normalized := c.deriver.Normalize(text)
	key := c.deriver.Derive(text, model)

	if entry, tier, ok := c.store.Lookup(ctx, key); ok {
		if tier > 0 {
			c.backfill.Backfill(ctx, entry, tier)
		}
		return Result{Vector: entry.Vector, Origin: c.store.Name(tier)}, nil
	}
	c.misses.Add(1)

	vector, _, err := c.registry.Do(ctx, key, func(callCtx context.Context) ([]float32, error) {
		vectors, err := c.compute.ComputeBatch(callCtx, []string{normalized}, model)
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, &compute.ValidationError{Reason: "vector count mismatch", Want: 1, Got: len(vectors)}
		}
		vector := vectors[0]
		if c.dimension > 0 && len(vector) != c.dimension {
			return nil, &compute.ValidationError{Reason: "dimension mismatch", Want: c.dimension, Got: len(vector)}
		}
		c.backfill.Backfill(callCtx, c.newEntry(key, model, vector), -1)
		return vector, nil
	})
	if err != nil {
		return Result{}, c.wrapComputeError(model, err)
	}

	return Result{Vector: vector, Origin: OriginCompute}, nil
}

// GetEmbeddingsBatch returns embeddings for texts in order. Cached items
// are served from tiers; the remainder is grouped into compute batches of
// at most the configured size, coalescing with any in-flight computations.
// The whole batch fails on the first unresolvable item.
func (c *Cache) GetEmbeddingsBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	calls := make([]*inflight.Call, len(texts))

	var leaders []leaderItem

	for i, text := range texts {
		normalized := c.deriver.Normalize(text)
		key := c.deriver.Derive(text, model)

		if entry, tier, ok := c.store.Lookup(ctx, key); ok {
			if tier > 0 {
				c.backfill.Backfill(ctx, entry, tier)
			}
			results[i] = entry.Vector
			continue
		}
		c.misses.Add(1)

		call, leader := c.registry.Acquire(ctx, key)
		calls[i] = call
		if leader {
			leaders = append(leaders, leaderItem{call: call, key: key, text: normalized})
		}
	}

	if len(leaders) > 0 {
		// Batch computes detach from the caller's context so that a
		// cancelled batch still populates the cache for other waiters.
		computeCtx := context.WithoutCancel(ctx)

		var g errgroup.Group
		g.SetLimit(chunkConcurrency)
		for start := 0; start < len(leaders); start += c.maxBatch {
			group := leaders[start:min(start+c.maxBatch, len(leaders))]
			g.Go(func() error {
				c.computeGroup(computeCtx, group, model)
				return nil
			})
		}
		_ = g.Wait()
	}

	var firstErr error
	for i := range texts {
		if calls[i] == nil {
			continue
		}
		vector, err := calls[i].Wait(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = c.wrapComputeError(model, err)
			}
			continue
		}
		results[i] = vector
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// leaderItem is a batch item whose caller won the in-flight race and owns
// its computation.
type leaderItem struct {
	call *inflight.Call
	key  types.CacheKey
	text string
}

// computeGroup runs one compute batch and settles every leader call in the
// group, individually validating dimensions and triggering backfill.
func (c *Cache) computeGroup(ctx context.Context, group []leaderItem, model string) {
	groupTexts := make([]string, len(group))
	for i, item := range group {
		groupTexts[i] = item.text
	}

	vectors, err := c.compute.ComputeBatch(ctx, groupTexts, model)
	if err == nil && len(vectors) != len(group) {
		err = &compute.ValidationError{Reason: "vector count mismatch", Want: len(group), Got: len(vectors)}
	}
	if err != nil {
		for _, item := range group {
			item.call.Settle(nil, err)
		}
		return
	}

	for i, item := range group {
		vector := vectors[i]
		if c.dimension > 0 && len(vector) != c.dimension {
			item.call.Settle(nil, &compute.ValidationError{
				Reason: "dimension mismatch",
				Want:   c.dimension,
				Got:    len(vector),
			})
			continue
		}
		c.backfill.Backfill(ctx, c.newEntry(item.key, model, vector), -1)
		item.call.Settle(vector, nil)
	}
}

// Warm pre-populates the tiers for the given texts through the batch path.
func (c *Cache) Warm(ctx context.Context, texts []string, model string) error {
	_, err := c.GetEmbeddingsBatch(ctx, texts, model)
	return err
}

// ChunkEmbedding pairs one document chunk with its embedding.
type ChunkEmbedding struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// EmbedDocument splits a long document into overlapping chunks and embeds
// each through the cache. Requires options.WithChunking.
func (c *Cache) EmbedDocument(ctx context.Context, text, model string) ([]ChunkEmbedding, error) {
	if c.chunker == nil {
		return nil, errors.New("chunking not configured - use options.WithChunking")
	}

	chunks, err := c.chunker.ChunkText(text)
	if err != nil {
		return nil, err
	}

	chunkTexts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkTexts[i] = chunk.Text
	}

	vectors, err := c.GetEmbeddingsBatch(ctx, chunkTexts, model)
	if err != nil {
		return nil, err
	}

	embeddings := make([]ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		embeddings[i] = ChunkEmbedding{Chunk: chunk, Vector: vectors[i]}
	}
	return embeddings, nil
}

// Flush clears every tier.
func (c *Cache) Flush(ctx context.Context) error {
	return c.store.Flush(ctx)
}

// Close waits for outstanding backfills, then closes the compute client
// and every tier backend.
func (c *Cache) Close() error {
	c.backfill.Wait()
	c.compute.Close()
	return c.store.Close()
}

func (c *Cache) newEntry(key types.CacheKey, model string, vector []float32) types.Entry {
	return types.Entry{
		Key:       key,
		Vector:    vector,
		Dimension: len(vector),
		Model:     model,
		CreatedAt: time.Now(),
	}
}

// wrapComputeError maps a settled compute failure to the public taxonomy:
// validation errors and caller cancellations pass through, everything else
// becomes UnavailableError.
func (c *Cache) wrapComputeError(model string, err error) error {
	var ve *compute.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	var ce *compute.Error
	if errors.As(err, &ce) {
		return &UnavailableError{Model: model, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UnavailableError{Model: model, Err: err}
}
