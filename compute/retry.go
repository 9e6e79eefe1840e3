package compute

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/botirk38/embedcache/types"
)

// RetryConfig configures the retry wrapper.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	// Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	// Default: 30s
	MaxDelay time.Duration

	// SingleTimeout bounds each attempt embedding one text.
	// Default: 60s
	SingleTimeout time.Duration

	// BatchTimeout bounds each attempt embedding multiple texts.
	// Default: 120s
	BatchTimeout time.Duration

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.SingleTimeout <= 0 {
		c.SingleTimeout = 60 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 120 * time.Second
	}
	return c
}

// RetryingClient wraps a ComputeClient with per-attempt timeouts and
// exponential backoff with full jitter. Validation errors pass through
// untouched; only transient failures are retried.
type RetryingClient struct {
	inner   types.ComputeClient
	config  RetryConfig
	retries atomic.Uint64
}

// NewRetrying wraps inner with the given retry policy.
func NewRetrying(inner types.ComputeClient, config RetryConfig) *RetryingClient {
	return &RetryingClient{
		inner:  inner,
		config: config.withDefaults(),
	}
}

// ComputeBatch runs the wrapped client with retries. After exhausting
// attempts the last transient error is returned.
func (c *RetryingClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	timeout := c.config.SingleTimeout
	if len(texts) > 1 {
		timeout = c.config.BatchTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		vectors, err := c.inner.ComputeBatch(attemptCtx, texts, model)
		cancel()

		if err == nil {
			return vectors, nil
		}

		// An attempt timeout is a transient failure; the caller's own
		// cancellation is not.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attemptCtx.Err() != nil {
			err = &Error{Op: "batch", Err: err}
		}

		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt >= c.config.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		if c.config.OnRetry != nil {
			c.config.OnRetry(attempt, err, delay)
		}
		c.retries.Add(1)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// backoff returns a full-jitter delay for the given attempt: uniform in
// [0, min(MaxDelay, BaseDelay*2^(attempt-1))].
func (c *RetryingClient) backoff(attempt int) time.Duration {
	ceiling := c.config.BaseDelay << (attempt - 1)
	if ceiling > c.config.MaxDelay || ceiling <= 0 {
		ceiling = c.config.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

// Retries returns the total number of retry attempts performed.
func (c *RetryingClient) Retries() uint64 {
	return c.retries.Load()
}

// Close closes the wrapped client.
func (c *RetryingClient) Close() {
	c.inner.Close()
}
