package retry

import (
	"context"
	"fmt"
	"time"
)

// Retrier runs operations under a Policy. Only errors accepted by Retryable
// are retried; anything else returns at once.
type Retrier struct {
	Policy    Policy
	Retryable func(error) bool
	// OnRetry, if set, is called before each wait.
	OnRetry func(key Key, err error, wait time.Duration)

	sleep func(context.Context, time.Duration) error
}

// New returns a Retrier for policy and classifier.
func New(policy Policy, retryable func(error) bool) *Retrier {
	return &Retrier{Policy: policy, Retryable: retryable, sleep: sleepCtx}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. The last error is returned wrapped with the
// attempt count. A cancelled context stops the wait between attempts.
func (r *Retrier) Do(ctx context.Context, operation, subject string, fn func(context.Context) error) error {
	attempts := r.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if r.Retryable == nil || !r.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		key := Key{Operation: operation, Subject: subject, Attempt: attempt}
		wait := Delay(key, r.Policy)
		if r.OnRetry != nil {
			r.OnRetry(key, err, wait)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return fmt.Errorf("%s: retry wait interrupted: %w (last error: %v)", operation, serr, err)
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", operation, attempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
