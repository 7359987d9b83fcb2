package pollwait

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilStopsOnDone(t *testing.T) {
	// WHAT: The loop stops as soon as the predicate holds.
	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestUntilTimeout(t *testing.T) {
	// WHAT: A predicate that never holds yields ErrTimeout, not a hang.
	// WHY: The status poller must report "timed out" distinctly from a
	// server error (the work may still finish upstream).
	calls := 0
	err := Until(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	if calls == 0 {
		t.Error("predicate was never called")
	}
}

func TestUntilPropagatesError(t *testing.T) {
	// WHAT: A failing step stops the loop with its own error.
	boom := errors.New("boom")
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}
}

func TestUntilCancellation(t *testing.T) {
	// WHAT: Cancelling the host context stops the loop with ctx.Err().
	// WHY: Tearing down the hosting surface must cancel pending polls,
	// and cancellation is not a timeout.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Until(ctx, 5*time.Millisecond, time.Minute, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestUntilFirstCallImmediate(t *testing.T) {
	// WHAT: The first poll happens without waiting an interval.
	start := time.Now()
	err := Until(context.Background(), time.Minute, time.Hour, func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first call delayed by %v", elapsed)
	}
}

func TestUntilAttemptsExhaustion(t *testing.T) {
	// WHAT: The attempt-bounded variant gives up after exactly maxAttempts.
	// WHY: The bridge connect loop is specified as <=30 attempts, not a duration.
	calls := 0
	err := UntilAttempts(context.Background(), time.Millisecond, 5, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
}
