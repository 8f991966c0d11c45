// Package dberr classifies storage failures and provides the bounded
// retry-with-backoff helper used by the task processor and repository
// layers when a transient storage error is retryable.
package dberr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors shared across repository packages.
var (
	ErrNotFound       = errors.New("dberr: record not found")
	ErrConflict       = errors.New("dberr: invariant conflict, treated as idempotent")
	ErrRetryExhausted = errors.New("dberr: retry attempts exhausted")
)

// ValidationError is a structured validation failure at an interface
// boundary, naming the offending field per spec requirements.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Message)
}

// Retry runs fn up to n times with exponential backoff starting at
// baseDelay, doubling each attempt. It stops early if fn succeeds, if
// ctx is canceled, or if fn returns an error wrapping a non-retryable
// sentinel (ErrNotFound, ErrConflict, or a *ValidationError).
func Retry(ctx context.Context, n int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == n-1 {
			break
		}

		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func isRetryable(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return false
	}
	return true
}
