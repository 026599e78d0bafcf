package llm

import (
	"context"
	"strings"

	"github.com/soyeahso/peppercloud/internal/logging"
)

// Failover tries providers in order, moving on when a provider returns a
// retryable error response.
type Failover struct {
	providers []Provider
	log       *logging.Logger
}

// NewFailover creates a provider that tries primary first, then each
// fallback on retryable errors (401, 403, 429, 5xx).
func NewFailover(log *logging.Logger, primary Provider, fallbacks ...Provider) *Failover {
	return &Failover{
		providers: append([]Provider{primary}, fallbacks...),
		log:       log.Sub("llm.failover"),
	}
}

// Name returns the primary provider name.
func (f *Failover) Name() string {
	return f.providers[0].Name()
}

// Chat returns the first non-retryable response, or the last response when
// every provider failed. A provider returning nil counts as a retryable
// failure.
func (f *Failover) Chat(ctx context.Context, req ChatRequest) *Response {
	var resp *Response
	for i, p := range f.providers {
		resp = p.Chat(ctx, req)
		missing := resp == nil
		if missing {
			resp = noResponse(p.Name())
		}
		if !missing && (resp.StopReason != StopError || !isRetryable(resp.Err)) {
			return resp
		}
		if ctx.Err() != nil {
			return resp
		}
		if i < len(f.providers)-1 {
			f.log.Warn().
				Str("provider", p.Name()).
				Str("next", f.providers[i+1].Name()).
				Str("error", resp.Err.Error()).
				Msg("retryable error, trying next provider")
		}
	}
	return resp
}

func noResponse(provider string) *Response {
	pe := &ProviderError{Provider: provider, Message: "returned no response"}
	return &Response{Text: ErrorText(pe), StopReason: StopError, Err: pe}
}

// isRetryable checks if the error suggests trying another provider.
func isRetryable(err *ProviderError) bool {
	if err == nil {
		return false
	}

	switch err.Code {
	case 401, 403, 429, 500, 502, 503, 504, 529:
		return true
	}

	msg := strings.ToLower(err.Message)
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}
