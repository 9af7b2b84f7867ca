// Package retry runs an operation under an attempt limit with exponential
// backoff and deterministic jitter.
package retry

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// Key identifies one retried call. Jitter is derived from it, so the same
// call retries on the same schedule.
type Key struct {
	Operation string
	Subject   string
	Attempt   int
}

// Policy bounds a retry loop.
type Policy struct {
	Name        string
	BaseMs      int64
	MaxMs       int64
	MaxJitterMs int64
	MaxAttempts int
}

// DefaultPolicy allows three attempts, 500ms then 1s apart, plus jitter.
func DefaultPolicy() Policy {
	return Policy{
		Name:        "analyzer",
		BaseMs:      500,
		MaxMs:       8000,
		MaxJitterMs: 250,
		MaxAttempts: 3,
	}
}

// Delay returns the wait before retry number key.Attempt (1-based):
// base * 2^(attempt-1), capped at MaxMs, plus jitter.
func Delay(key Key, policy Policy) time.Duration {
	exp := key.Attempt - 1
	if exp < 0 {
		exp = 0
	}
	if exp > 30 {
		exp = 30
	}

	base := policy.BaseMs * (int64(1) << exp)
	if base > policy.MaxMs {
		base = policy.MaxMs
	}

	return time.Duration(base+Jitter(key, policy)) * time.Millisecond
}

// Jitter derives a value in [0, MaxJitterMs) from the key.
func Jitter(key Key, policy Policy) int64 {
	if policy.MaxJitterMs <= 0 {
		return 0
	}
	seed := fmt.Sprintf("%s:%s:%s:%d", policy.Name, key.Operation, key.Subject, key.Attempt)
	sum := sha256.Sum256([]byte(seed))
	basis := binary.BigEndian.Uint64(sum[:8])
	return int64(basis % uint64(policy.MaxJitterMs)) //nolint:gosec // MaxJitterMs checked positive
}
