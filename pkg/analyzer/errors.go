package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCircuitOpen is returned without contacting the analyzer while its
// breaker is open.
var ErrCircuitOpen = errors.New("analyzer circuit open")

// Error is a failed analyzer call.
type Error struct {
	Modality   Modality
	Endpoint   string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s analyzer %s: status %d: %s", e.Modality, e.Endpoint, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s analyzer %s: %v", e.Modality, e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s analyzer %s failed", e.Modality, e.Endpoint)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the same request may succeed: 5xx
// responses, 429, transport failures and an open breaker.
func (e *Error) Transient() bool {
	if e.StatusCode >= 500 || e.StatusCode == 429 {
		return true
	}
	if e.StatusCode != 0 {
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if errors.Is(e.Err, ErrCircuitOpen) {
		return true
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return true
	}
	return e.Err != nil && !errors.Is(e.Err, errMalformed)
}

// IsTransient is the retry classifier for analyzer calls.
func IsTransient(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Transient()
	}
	return false
}

var errMalformed = errors.New("malformed analyzer response")
