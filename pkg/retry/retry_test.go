package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("503 service unavailable")
	errPermanent = errors.New("400 bad request")
)

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func newTestRetrier(p Policy) (*Retrier, *[]time.Duration) {
	var waits []time.Duration
	r := New(p, isTransient)
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestDelay_ExponentialAndCapped(t *testing.T) {
	p := Policy{Name: "t", BaseMs: 100, MaxMs: 1000}
	assert.Equal(t, 100*time.Millisecond, Delay(Key{Attempt: 1}, p))
	assert.Equal(t, 200*time.Millisecond, Delay(Key{Attempt: 2}, p))
	assert.Equal(t, 400*time.Millisecond, Delay(Key{Attempt: 3}, p))
	assert.Equal(t, 1000*time.Millisecond, Delay(Key{Attempt: 10}, p))
	assert.Equal(t, 1000*time.Millisecond, Delay(Key{Attempt: 99}, p))
}

func TestJitter_DeterministicAndBounded(t *testing.T) {
	p := Policy{Name: "t", MaxJitterMs: 50}
	k := Key{Operation: "voice", Subject: "asset-1:0-5", Attempt: 1}

	j := Jitter(k, p)
	assert.Equal(t, j, Jitter(k, p))
	assert.GreaterOrEqual(t, j, int64(0))
	assert.Less(t, j, int64(50))
	assert.Zero(t, Jitter(k, Policy{}))
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	r, waits := newTestRetrier(Policy{BaseMs: 10, MaxMs: 100, MaxAttempts: 3})

	calls := 0
	err := r.Do(context.Background(), "voice", "a", func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *waits)
}

func TestDo_PermanentNotRetried(t *testing.T) {
	r, waits := newTestRetrier(Policy{BaseMs: 10, MaxMs: 100, MaxAttempts: 3})

	calls := 0
	err := r.Do(context.Background(), "visual", "a", func(context.Context) error {
		calls++
		return errPermanent
	})
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	r, waits := newTestRetrier(Policy{BaseMs: 1, MaxMs: 10, MaxAttempts: 3})

	var seen []int
	r.OnRetry = func(k Key, _ error, _ time.Duration) { seen = append(seen, k.Attempt) }

	calls := 0
	err := r.Do(context.Background(), "expression", "a", func(context.Context) error {
		calls++
		return errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	assert.Equal(t, 3, calls)
	assert.Len(t, *waits, 2)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_CancelledWait(t *testing.T) {
	r := New(Policy{BaseMs: 10_000, MaxMs: 10_000, MaxAttempts: 3}, isTransient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "voice", "a", func(context.Context) error { return errTransient })
	assert.ErrorIs(t, err, context.Canceled)
}
