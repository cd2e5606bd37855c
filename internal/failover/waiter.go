package failover

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrWaitTimeout = errors.New("timed out waiting for condition")

// Default bounds for waiting on a promoted replica, matching the RDS
// "db instance available" waiter.
const (
	DefaultWaitInterval    = 30 * time.Second
	DefaultWaitMaxAttempts = 60
)

// CheckFunc polls a remote resource once. It returns done when the awaited
// condition holds, and the observed status for logging. A non-nil error stops
// the wait immediately.
type CheckFunc func(ctx context.Context) (done bool, status string, err error)

// Waiter polls a condition at a fixed interval for a bounded number of
// attempts.
type Waiter struct {
	Interval    time.Duration
	MaxAttempts int
	// Sleep blocks for d or until ctx is done. Tests replace it to avoid real
	// delays.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnAttempt, if set, is called after every poll.
	OnAttempt func(ctx context.Context, attempt int, status string)
}

// DefaultWaiter returns a Waiter with the default bounds and a real sleep.
func DefaultWaiter() *Waiter {
	return NewWaiter(DefaultWaitInterval, DefaultWaitMaxAttempts)
}

// NewWaiter returns a Waiter with the given bounds and a real sleep.
func NewWaiter(interval time.Duration, maxAttempts int) *Waiter {
	return &Waiter{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Sleep:       sleepContext,
	}
}

// Wait polls check until it reports done, returns an error, or MaxAttempts
// polls have been made. It returns the last observed status.
func (w *Waiter) Wait(ctx context.Context, check CheckFunc) (string, error) {
	sleep := w.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var status string
	for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
		done, s, err := check(ctx)
		status = s
		if w.OnAttempt != nil {
			w.OnAttempt(ctx, attempt, status)
		}
		if err != nil {
			return status, err
		}
		if done {
			return status, nil
		}
		if attempt == w.MaxAttempts {
			break
		}
		if err := sleep(ctx, w.Interval); err != nil {
			return status, err
		}
	}
	return status, fmt.Errorf("%w after %d attempts (last status %q)", ErrWaitTimeout, w.MaxAttempts, status)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
