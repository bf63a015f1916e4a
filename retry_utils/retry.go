package retry_utils

import (
	"context"
	"errors"
	"time"
)

// Backoff retries an operation with exponentially growing delays. It is
// deliberately independent from any overall deadline: callers compose the
// two by passing a context with a timeout.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string {
	return p.err.Error()
}

func (p *permanentError) Unwrap() error {
	return p.err
}

// Permanent marks err as not worth retrying, e.g. a business validation
// failure. Do surfaces the original error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DelayFor returns the delay after the given zero-based failed attempt:
// BaseDelay doubling each attempt, capped at MaxDelay.
func (b Backoff) DelayFor(attempt int) time.Duration {
	delay := b.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}

// Do runs fn up to MaxAttempts times, waiting between attempts. It returns
// nil on the first success, the wrapped error as soon as fn fails with a
// Permanent error, and the last error once attempts are exhausted. Waiting
// is interrupted by ctx cancellation.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.DelayFor(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}
	return lastErr
}
