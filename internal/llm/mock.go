package llm

import (
	"context"
	"sync"
)

// MockProvider is a test double for Provider. Requests are recorded; when
// ChatFunc is nil the queued Responses are returned in order, then a fixed
// text reply.
type MockProvider struct {
	ProviderName string
	ChatFunc     func(ctx context.Context, req ChatRequest) *Response
	Responses    []*Response

	mu       sync.Mutex
	requests []ChatRequest
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) *Response {
	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	var next *Response
	if m.ChatFunc == nil && len(m.Responses) > 0 {
		next = m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if next != nil {
		return next
	}
	return &Response{Text: "mock response", StopReason: StopEnd, Model: "mock"}
}

// Requests returns the requests received so far.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

func cloneRequest(req ChatRequest) ChatRequest {
	req.Messages = append([]Message(nil), req.Messages...)
	return req
}
