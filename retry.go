package blastx

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default WaitFunc. It returns ErrCanceled if ctx ends
// before d elapses.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return errors.Mark(ctx.Err(), ErrCanceled)
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Mark(ctx.Err(), ErrCanceled)
	case <-t.C:
		return nil
	}
}

// CheckFunc performs one status check. It reports whether the awaited
// condition holds; a non-nil error ends polling immediately.
type CheckFunc func(ctx context.Context, attempt int) (bool, error)

// RetryPolicy is a bounded, fixed-delay retry policy: every attempt waits
// Delay and then checks once. There is no backoff and no jitter.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Wait defaults to SleepContext.
	Wait WaitFunc
}

// Poll runs check until it reports ready, returns an error, or MaxAttempts
// checks have been made. It returns the number of checks performed. When the
// budget is exhausted the error is ErrTimeout.
func (p RetryPolicy) Poll(ctx context.Context, check CheckFunc) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, errors.Wrapf(ErrInvalidOption, "max attempts must be positive, got %d", p.MaxAttempts)
	}
	wait := p.Wait
	if wait == nil {
		wait = SleepContext
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := wait(ctx, p.Delay); err != nil {
			return attempt - 1, err
		}
		ready, err := check(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if ready {
			return attempt, nil
		}
	}

	return p.MaxAttempts, errors.Wrapf(ErrTimeout, "no result after %d attempts", p.MaxAttempts)
}
