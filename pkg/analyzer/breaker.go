package analyzer

import (
	"sync"
	"time"
)

type breakerState string

const (
	stateClosed   breakerState = "CLOSED"
	stateOpen     breakerState = "OPEN"
	stateHalfOpen breakerState = "HALF_OPEN"
)

// Breaker stops calls to an analyzer after threshold consecutive transient
// failures, and lets one trial call through once resetTimeout has passed.
type Breaker struct {
	mu           sync.Mutex
	name         string
	failures     int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        breakerState
	now          func() time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(name string, threshold int, resetTimeout time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        stateClosed,
		now:          time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker whose reset
// timeout elapsed moves to half-open and admits a single trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.lastFailure) > b.resetTimeout {
			b.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		// trial call in flight
		return false
	default:
		return true
	}
}

// Success closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
}

// Failure records a failed call. A failed trial call reopens at once.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	if b.state == stateHalfOpen || b.failures >= b.threshold {
		b.state = stateOpen
	}
}

// Release gives back an admitted half-open trial call that never reached the
// analyzer. The breaker returns to open with its reset timeout already
// elapsed, so the next call is admitted again.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateHalfOpen {
		b.state = stateOpen
	}
}

// Open reports whether calls are currently being rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != stateClosed
}
