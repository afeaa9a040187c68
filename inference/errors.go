package inference

import (
	"fmt"
	"time"
)

// TimeoutError means the timer won the race against the remote call. The
// in-flight call is abandoned best-effort; its late result is discarded.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inference call timed out after %s", e.After)
}

// TransportError is any non-timeout failure of the remote call, with the
// underlying cause attached for logging.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference transport failure: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }
