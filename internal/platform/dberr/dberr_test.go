package dberr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("always fails")
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryValidationError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &ValidationError{Field: "subject", Message: "must not be empty"}
	})
	assert.Equal(t, 1, calls)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "subject", ve.Field)
}

func TestRetryDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return ErrNotFound
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errors.New("transient")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}
