package embedcache

import (
	"errors"
	"fmt"
)

// ErrEmbeddingUnavailable is the errors.Is target for lookups that failed
// after every fallback was exhausted.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// UnavailableError is returned when no tier held the entry and the compute
// client ultimately failed. It carries the root cause for diagnostics;
// internal per-tier errors are never stacked into it.
type UnavailableError struct {
	Model string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable for model %q: %v", e.Model, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEmbeddingUnavailable) match.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrEmbeddingUnavailable
}
