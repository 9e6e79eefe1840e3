package embedcache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/botirk38/embedcache/tiers"
	"github.com/botirk38/embedcache/types"
)

// backfillWriter propagates a resolved entry into every tier faster than
// the one that served it. By default it runs fire-and-forget; failures are
// counted and logged, never surfaced to the caller that already has its
// vector.
type backfillWriter struct {
	store       *tiers.Store
	logger      *zap.Logger
	synchronous bool

	wg       sync.WaitGroup
	failures atomic.Uint64
}

func newBackfillWriter(store *tiers.Store, logger *zap.Logger, synchronous bool) *backfillWriter {
	return &backfillWriter{
		store:       store,
		logger:      logger,
		synchronous: synchronous,
	}
}

// Backfill writes entry into tiers 0..hitTier-1. A negative hitTier means
// the entry was freshly computed and every tier is written.
func (w *backfillWriter) Backfill(ctx context.Context, entry types.Entry, hitTier int) {
	limit := hitTier
	if limit < 0 {
		limit = w.store.Len()
	}
	if limit == 0 {
		return
	}

	if w.synchronous {
		w.write(ctx, entry, limit)
		return
	}

	w.wg.Add(1)
	// Detached context: the originating request may finish or be
	// cancelled while the backfill is still writing.
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer w.wg.Done()
		w.write(bgCtx, entry, limit)
	}()
}

func (w *backfillWriter) write(ctx context.Context, entry types.Entry, limit int) {
	for i := 0; i < limit; i++ {
		if err := w.store.WriteToTier(ctx, i, entry); err != nil {
			w.failures.Add(1)
		}
	}
}

// Wait blocks until all fire-and-forget backfills have finished.
func (w *backfillWriter) Wait() {
	w.wg.Wait()
}

// Failures returns the number of failed tier writes during backfill.
func (w *backfillWriter) Failures() uint64 {
	return w.failures.Load()
}
