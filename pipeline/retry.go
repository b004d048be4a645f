package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/fernwick/camtrapbackend/inference"
)

// retryTransient runs fn up to retries+1 times with doubling delays.
// Permanent failures (bad input) and context cancellation stop the loop
// immediately; only transient errors are worth another attempt.
func retryTransient(ctx context.Context, retries int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, inference.ErrBadInput) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return err
}
