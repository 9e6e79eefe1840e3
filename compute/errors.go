package compute

import (
	"context"
	"errors"
	"fmt"
)

// Error is a retryable compute failure: the upstream embedding service was
// unreachable, timed out, or returned a transient status.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compute %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError is a terminal compute failure: the service responded but
// violated its contract (wrong vector count, wrong dimension, malformed
// payload). Retrying would waste quota and likely repeat the violation.
type ValidationError struct {
	Reason string
	Want   int
	Got    int
}

func (e *ValidationError) Error() string {
	if e.Want != 0 || e.Got != 0 {
		return fmt.Sprintf("compute response invalid: %s (want %d, got %d)", e.Reason, e.Want, e.Got)
	}
	return "compute response invalid: " + e.Reason
}

// IsRetryable reports whether err should be retried. Validation errors and
// caller cancellations are terminal; everything else coming out of a
// compute client is considered transient.
func IsRetryable(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
