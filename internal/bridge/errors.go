package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConnectionError means the bridge could not be reached or did not answer
// in time.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *ConnectionError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// AuthError means the bridge rejected the API key.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bridge %s: Unauthorized - check BRIDGE_API_KEY", e.Endpoint)
}

// RequestError means the bridge answered with a non-OK envelope or a
// non-2xx status.
type RequestError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("bridge %s: %s", e.Endpoint, e.Message)
}
