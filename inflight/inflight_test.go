package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_CoalescesConcurrentCallers(t *testing.T) {
	r := NewRegistry()

	var computeCalls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) ([]float32, error) {
		computeCalls.Add(1)
		close(started)
		<-release
		return []float32{1, 2, 3}, nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([][]float32, n)
	errs := make([]error, n)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = r.Do(context.Background(), "k", fn)
	}()
	<-started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = r.Do(context.Background(), "k", fn)
		}()
	}
	// Give followers time to subscribe before releasing the compute.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := computeCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 compute call, got %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if len(results[i]) != 3 {
			t.Errorf("caller %d: expected shared vector, got %v", i, results[i])
		}
	}
	if r.Coalesced() != n-1 {
		t.Errorf("expected %d coalesced requests, got %d", n-1, r.Coalesced())
	}
}

func TestDo_SharedFailure(t *testing.T) {
	r := NewRegistry()
	wantErr := errors.New("compute down")

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]float32, error) {
		close(started)
		<-release
		return nil, wantErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, errs[0] = r.Do(context.Background(), "k", fn)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, errs[1] = r.Do(context.Background(), "k", fn)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d: expected shared failure, got %v", i, err)
		}
	}
}

func TestDo_RegistryClearedAfterSettle(t *testing.T) {
	r := NewRegistry()

	fn := func(ctx context.Context) ([]float32, error) {
		return []float32{1}, nil
	}
	if _, _, err := r.Do(context.Background(), "k", fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Len() != 0 {
		t.Errorf("expected empty registry after settle, got %d entries", r.Len())
	}

	// A later request computes fresh.
	var calls atomic.Int32
	fn2 := func(ctx context.Context) ([]float32, error) {
		calls.Add(1)
		return []float32{2}, nil
	}
	if _, _, err := r.Do(context.Background(), "k", fn2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected fresh computation, got %d calls", calls.Load())
	}
}

func TestWait_ComputeSurvivesLeaderCancellation(t *testing.T) {
	r := NewRegistry()

	computeCancelled := make(chan struct{})
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) ([]float32, error) {
		close(started)
		select {
		case <-ctx.Done():
			close(computeCancelled)
			return nil, ctx.Err()
		case <-release:
			return []float32{7}, nil
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())

	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := r.Do(leaderCtx, "k", fn)
		leaderErr <- err
	}()
	<-started

	// Second subscriber keeps the computation alive.
	followerDone := make(chan struct{})
	var followerVec []float32
	var followerErr error
	go func() {
		defer close(followerDone)
		followerVec, _, followerErr = r.Do(context.Background(), "k", fn)
	}()
	time.Sleep(10 * time.Millisecond)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected leader to observe cancellation, got %v", err)
	}

	select {
	case <-computeCancelled:
		t.Fatal("computation was cancelled while a subscriber remained")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	<-followerDone
	if followerErr != nil {
		t.Fatalf("follower: unexpected error: %v", followerErr)
	}
	if len(followerVec) != 1 || followerVec[0] != 7 {
		t.Errorf("follower: expected shared result, got %v", followerVec)
	}
}

func TestWait_LastSubscriberCancelPropagates(t *testing.T) {
	r := NewRegistry()

	computeCancelled := make(chan struct{})
	started := make(chan struct{})

	fn := func(ctx context.Context) ([]float32, error) {
		close(started)
		<-ctx.Done()
		close(computeCancelled)
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := r.Do(ctx, "k", fn)
		errCh <- err
	}()
	<-started

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}

	select {
	case <-computeCancelled:
	case <-time.After(time.Second):
		t.Fatal("expected compute cancellation once the only subscriber left")
	}
}
