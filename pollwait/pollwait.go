// Package pollwait provides the shared poll-until primitive used by the
// status poller and the cloud-bridge connection poller. Both loops need the
// same shape — query, check a predicate, sleep, respect a deadline, cancel
// cleanly — so the loop lives here once instead of twice.
package pollwait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the deadline elapses before the predicate
// holds. It is distinct from any error returned by the polled function:
// hitting the budget means the work may still finish later, not that it
// failed.
var ErrTimeout = errors.New("pollwait: deadline elapsed")

// Func is one polling step. Returning done=true stops the loop successfully.
// Returning a non-nil error stops the loop and propagates the error.
type Func func(ctx context.Context) (done bool, err error)

// Until calls fn every interval until it reports done, fails, the deadline
// elapses (ErrTimeout), or ctx is cancelled (ctx.Err()).
//
// The first call happens immediately, not after the first interval. Calls
// are strictly sequential: fn is never invoked concurrently with itself,
// so observers see updates in order.
func Until(ctx context.Context, interval, deadline time.Duration, fn Func) error {
	if interval <= 0 {
		return errors.New("pollwait: interval must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// UntilAttempts calls fn every interval until it reports done, fails, or
// maxAttempts calls have been made (ErrTimeout). Used by the bridge connect
// loop, which is specified as a bounded attempt count rather than a duration.
func UntilAttempts(ctx context.Context, interval time.Duration, maxAttempts int, fn Func) error {
	if interval <= 0 {
		return errors.New("pollwait: interval must be positive")
	}
	if maxAttempts < 1 {
		return errors.New("pollwait: maxAttempts must be at least 1")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return ErrTimeout
}
