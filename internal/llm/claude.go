package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const defaultClaudeURL = "https://api.anthropic.com"

// ClaudeProvider talks to the Anthropic Messages API over direct HTTP.
type ClaudeProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClaudeProvider creates a Claude backend. An empty baseURL uses the
// public API.
func NewClaudeProvider(apiKey, model, baseURL string, timeout time.Duration) *ClaudeProvider {
	if baseURL == "" {
		baseURL = defaultClaudeURL
	}
	return &ClaudeProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name.
func (c *ClaudeProvider) Name() string { return "claude" }

// Chat sends one Messages API request.
func (c *ClaudeProvider) Chat(ctx context.Context, req ChatRequest) *Response {
	start := time.Now()
	return safeChat(c.Name(), c.model, start, func() *Response {
		headers := map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": "2023-06-01",
		}
		var result claudeResponse
		if err := postJSON(ctx, c.client, c.Name(), c.baseURL+"/v1/messages", headers, c.buildRequestBody(req), &result); err != nil {
			return errorResponse(c.Name(), c.model, err, start)
		}
		return finish(c.Name(), c.toResponse(&result), start)
	})
}

func (c *ClaudeProvider) buildRequestBody(req ChatRequest) claudeRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body := claudeRequest{
		Model:       c.model,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    make([]claudeMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, claudeMessageFrom(m))
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, claudeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return body
}

func claudeMessageFrom(m Message) claudeMessage {
	if len(m.Blocks) == 0 {
		return claudeMessage{Role: string(m.Role), Content: []claudeBlock{{Type: "text", Text: m.Text}}}
	}
	blocks := make([]claudeBlock, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			blocks = append(blocks, claudeBlock{Type: "text", Text: b.Text})
		case BlockToolUse:
			input := b.Input
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, claudeBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: input})
		case BlockToolResult:
			blocks = append(blocks, claudeBlock{Type: "tool_result", ToolUseID: b.ToolUseID, Content: b.Content})
		}
	}
	return claudeMessage{Role: string(m.Role), Content: blocks}
}

func (c *ClaudeProvider) toResponse(resp *claudeResponse) *Response {
	var text strings.Builder
	var calls []ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			input := block.Input
			if input == nil {
				input = map[string]any{}
			}
			calls = append(calls, ToolCall{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Text:      text.String(),
		ToolCalls: calls,
		Model:     model,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
}

// Messages API wire types

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Tools       []claudeTool    `json:"tools,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// MarshalJSON always writes input on tool_use blocks; the API rejects a
// tool_use without it, even for tools that take no arguments.
func (b claudeBlock) MarshalJSON() ([]byte, error) {
	type plain claudeBlock
	if b.Type != "tool_use" {
		return json.Marshal(plain(b))
	}
	input := b.Input
	if input == nil {
		input = map[string]any{}
	}
	return json.Marshal(struct {
		plain
		Input map[string]any `json:"input"`
	}{plain(b), input})
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeResponse struct {
	ID         string        `json:"id"`
	Model      string        `json:"model"`
	Content    []claudeBlock `json:"content"`
	StopReason string        `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
