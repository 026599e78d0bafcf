package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server through /api/chat.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates an Ollama backend.
// baseURL should be like "http://localhost:11434".
func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name.
func (o *OllamaProvider) Name() string { return "ollama" }

// Chat sends one non-streaming /api/chat request.
func (o *OllamaProvider) Chat(ctx context.Context, req ChatRequest) *Response {
	start := time.Now()
	return safeChat(o.Name(), o.model, start, func() *Response {
		var result ollamaResponse
		if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/api/chat", nil, o.buildRequestBody(req), &result); err != nil {
			return errorResponse(o.Name(), o.model, err, start)
		}
		if result.Error != "" {
			return errorResponse(o.Name(), o.model, &ProviderError{Provider: o.Name(), Message: result.Error}, start)
		}
		return finish(o.Name(), o.toResponse(&result), start)
	})
}

func (o *OllamaProvider) buildRequestBody(req ChatRequest) ollamaRequest {
	body := ollamaRequest{Model: o.model, Stream: false}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = map[string]any{}
		if req.Temperature != nil {
			body.Options["temperature"] = *req.Temperature
		}
		if req.MaxTokens > 0 {
			body.Options["num_predict"] = req.MaxTokens
		}
	}
	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessagesFrom(m)...)
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return body
}

// ollamaMessagesFrom expands one canonical message; each tool result
// becomes its own role=tool message.
func ollamaMessagesFrom(m Message) []ollamaMessage {
	if len(m.Blocks) == 0 {
		return []ollamaMessage{{Role: string(m.Role), Content: m.Text}}
	}
	if m.IsToolResult() {
		var out []ollamaMessage
		for _, b := range m.Blocks {
			if b.Type == BlockToolResult {
				out = append(out, ollamaMessage{Role: "tool", Content: b.Content})
			}
		}
		return out
	}
	msg := ollamaMessage{Role: string(m.Role), Content: m.PlainText()}
	for _, b := range m.ToolUses() {
		args := b.Input
		if args == nil {
			args = map[string]any{}
		}
		msg.ToolCalls = append(msg.ToolCalls, ollamaToolCall{
			Function: ollamaFunctionCall{Name: b.Name, Arguments: args},
		})
	}
	return []ollamaMessage{msg}
}

func (o *OllamaProvider) toResponse(resp *ollamaResponse) *Response {
	var calls []ToolCall
	for _, tc := range resp.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, ToolCall{
			ID:    "call_" + uuid.NewString(),
			Name:  tc.Function.Name,
			Input: args,
		})
	}
	model := resp.Model
	if model == "" {
		model = o.model
	}
	return &Response{
		Text:      resp.Message.Content,
		ToolCalls: calls,
		Model:     model,
		Usage: Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
		},
	}
}

// /api/chat wire types

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	Error           string        `json:"error,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}
