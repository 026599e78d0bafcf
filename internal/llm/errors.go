package llm

import (
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/peppercloud/internal/metrics"
)

// ProviderError is carried by a terminal error response.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.), 0 for transport errors
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrorText is the user-facing text of a terminal error response.
func ErrorText(err error) string {
	return "Sorry, I encountered an error: " + err.Error()
}

// errorResponse converts any failure into a terminal response.
func errorResponse(provider, model string, err error, start time.Time) *Response {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		pe = &ProviderError{Provider: provider, Message: err.Error()}
	}
	d := time.Since(start)
	metrics.RecordProviderCall(provider, false, d)
	return &Response{
		Text:       ErrorText(pe),
		StopReason: StopError,
		Model:      model,
		Duration:   d,
		Err:        pe,
	}
}

// finish stamps bookkeeping on a successful response.
func finish(provider string, resp *Response, start time.Time) *Response {
	resp.Duration = time.Since(start)
	if resp.StopReason == "" {
		if resp.HasToolCalls() {
			resp.StopReason = StopToolRequested
		} else {
			resp.StopReason = StopEnd
		}
	}
	metrics.RecordProviderCall(provider, true, resp.Duration)
	return resp
}

// safeChat runs fn, converting a panic into a terminal error response.
func safeChat(provider, model string, start time.Time, fn func() *Response) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(provider, model, fmt.Errorf("internal error: %v", r), start)
		}
	}()
	return fn()
}
