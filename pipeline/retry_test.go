package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwick/camtrapbackend/inference"
)

func TestRetryTransientRecovers(t *testing.T) {
	attempts := 0
	err := retryTransient(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: flaky", inference.ErrUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryTransientExhausts(t *testing.T) {
	attempts := 0
	err := retryTransient(context.Background(), 2, time.Millisecond, func() error {
		attempts++
		return fmt.Errorf("%w: still down", inference.ErrUnavailable)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrUnavailable)
	assert.Equal(t, 3, attempts)
}

func TestRetryTransientStopsOnBadInput(t *testing.T) {
	attempts := 0
	err := retryTransient(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		return fmt.Errorf("%w: rejected", inference.ErrBadInput)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrBadInput)
	// permanent failures never earn a second attempt
	assert.Equal(t, 1, attempts)
}

func TestRetryTransientHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retryTransient(ctx, 5, 50*time.Millisecond, func() error {
		attempts++
		cancel()
		return fmt.Errorf("%w: down", inference.ErrUnavailable)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
