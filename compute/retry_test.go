package compute

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyClient fails a fixed number of times before succeeding.
type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, &Error{Op: "batch", Err: errors.New("service unavailable")}
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func (c *flakyClient) Close() {}

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetryingClient_ExhaustsAttempts(t *testing.T) {
	inner := &flakyClient{failures: 3}
	client := NewRetrying(inner, fastRetry(3))

	_, err := client.ComputeBatch(context.Background(), []string{"t"}, "m")
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Errorf("expected compute error, got %T: %v", err, err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
	if client.Retries() != 2 {
		t.Errorf("expected 2 retries, got %d", client.Retries())
	}
}

func TestRetryingClient_SucceedsOnLastAttempt(t *testing.T) {
	inner := &flakyClient{failures: 3}
	client := NewRetrying(inner, fastRetry(4))

	vectors, err := client.ComputeBatch(context.Background(), []string{"t"}, "m")
	if err != nil {
		t.Fatalf("expected success on 4th attempt, got %v", err)
	}
	if len(vectors) != 1 {
		t.Errorf("unexpected result %v", vectors)
	}
	if inner.calls != 4 {
		t.Errorf("expected 4 attempts, got %d", inner.calls)
	}
}

// terminalClient always returns a validation error.
type terminalClient struct {
	calls int
}

func (c *terminalClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	c.calls++
	return nil, &ValidationError{Reason: "dimension mismatch", Want: 384, Got: 3}
}

func (c *terminalClient) Close() {}

func TestRetryingClient_ValidationErrorNotRetried(t *testing.T) {
	inner := &terminalClient{}
	client := NewRetrying(inner, fastRetry(5))

	_, err := client.ComputeBatch(context.Background(), []string{"t"}, "m")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("validation errors must not be retried, got %d attempts", inner.calls)
	}
}

// stallingClient blocks until its context is cancelled.
type stallingClient struct{}

func (c *stallingClient) ComputeBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *stallingClient) Close() {}

func TestRetryingClient_AttemptTimeoutIsRetryable(t *testing.T) {
	client := NewRetrying(&stallingClient{}, RetryConfig{
		MaxAttempts:   2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      time.Millisecond,
		SingleTimeout: 10 * time.Millisecond,
	})

	_, err := client.ComputeBatch(context.Background(), []string{"t"}, "m")
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected attempt timeout to surface as compute error, got %v", err)
	}
}

func TestRetryingClient_CallerCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyClient{failures: 10}
	client := NewRetrying(inner, fastRetry(5))

	_, err := client.ComputeBatch(ctx, []string{"t"}, "m")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected caller cancellation, got %v", err)
	}
	if inner.calls > 1 {
		t.Errorf("expected no retries after cancellation, got %d calls", inner.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&Error{Op: "x", Err: errors.New("boom")}) {
		t.Error("compute errors are retryable")
	}
	if IsRetryable(&ValidationError{Reason: "bad"}) {
		t.Error("validation errors are terminal")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation is terminal")
	}
}
