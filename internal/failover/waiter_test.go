package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingWaiter(maxAttempts int, sleeps *[]time.Duration) *Waiter {
	w := NewWaiter(5*time.Second, maxAttempts)
	w.Sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return w
}

func TestWaiter_ImmediateSuccess(t *testing.T) {
	var sleeps []time.Duration
	w := countingWaiter(3, &sleeps)

	status, err := w.Wait(context.Background(), func(context.Context) (bool, string, error) {
		return true, "available", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "available", status)
	assert.Empty(t, sleeps)
}

func TestWaiter_SuccessAfterPolling(t *testing.T) {
	var sleeps []time.Duration
	w := countingWaiter(5, &sleeps)

	statuses := []string{"modifying", "backing-up", "available"}
	calls := 0
	var attempts []int
	w.OnAttempt = func(_ context.Context, attempt int, _ string) {
		attempts = append(attempts, attempt)
	}

	status, err := w.Wait(context.Background(), func(context.Context) (bool, string, error) {
		s := statuses[calls]
		calls++
		return s == "available", s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "available", status)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeps)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestWaiter_Timeout(t *testing.T) {
	var sleeps []time.Duration
	w := countingWaiter(4, &sleeps)

	calls := 0
	status, err := w.Wait(context.Background(), func(context.Context) (bool, string, error) {
		calls++
		return false, "modifying", nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, "modifying", status)
	assert.Equal(t, 4, calls)
	assert.Len(t, sleeps, 3)
}

func TestWaiter_CheckErrorStops(t *testing.T) {
	var sleeps []time.Duration
	w := countingWaiter(10, &sleeps)
	boom := errors.New("throttled")

	calls := 0
	_, err := w.Wait(context.Background(), func(context.Context) (bool, string, error) {
		calls++
		return false, "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestWaiter_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWaiter(time.Hour, 10)

	calls := 0
	_, err := w.Wait(ctx, func(context.Context) (bool, string, error) {
		calls++
		cancel()
		return false, "modifying", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultWaiter(t *testing.T) {
	w := DefaultWaiter()
	assert.Equal(t, 30*time.Second, w.Interval)
	assert.Equal(t, 60, w.MaxAttempts)
	assert.NotNil(t, w.Sleep)
}
