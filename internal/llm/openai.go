package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible Chat Completions endpoint
// (OpenAI, OpenRouter, local gateways) through go-openai.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI backend. An empty baseURL uses the
// public OpenAI API.
func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = newHTTPClient(timeout)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Chat sends one chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) *Response {
	start := time.Now()
	return safeChat(p.Name(), p.model, start, func() *Response {
		creq := openai.ChatCompletionRequest{
			Model:     p.model,
			Messages:  convertMessages(req.System, req.Messages),
			Tools:     convertTools(req.Tools),
			MaxTokens: req.MaxTokens,
		}
		if len(creq.Tools) > 0 {
			creq.ToolChoice = "auto"
		}
		if req.Temperature != nil {
			creq.Temperature = float32(*req.Temperature)
		}

		resp, err := p.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return errorResponse(p.Name(), p.model, p.providerError(err), start)
		}
		if len(resp.Choices) == 0 {
			return errorResponse(p.Name(), p.model, &ProviderError{Provider: p.Name(), Message: "no choices in response"}, start)
		}
		return finish(p.Name(), p.toResponse(resp), start)
	})
}

func (p *OpenAIProvider) providerError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: p.Name(), Code: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: p.Name(), Code: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return &ProviderError{Provider: p.Name(), Message: err.Error()}
}

func (p *OpenAIProvider) toResponse(resp openai.ChatCompletionResponse) *Response {
	msg := resp.Choices[0].Message
	var calls []ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: parseArguments(tc.Function.Arguments),
		})
	}
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Response{
		Text:      msg.Content,
		ToolCalls: calls,
		Model:     model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

// parseArguments decodes the JSON-string arguments of a tool call. Invalid
// JSON yields an empty input so the executor applies its defaults.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func convertMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range msgs {
		if len(m.Blocks) == 0 {
			result = append(result, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Text})
			continue
		}
		if m.IsToolResult() {
			for _, b := range m.Blocks {
				if b.Type == BlockToolResult {
					result = append(result, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Content:    b.Content,
						ToolCallID: b.ToolUseID,
					})
				}
			}
			continue
		}
		oaiMsg := openai.ChatCompletionMessage{Role: string(m.Role), Content: m.PlainText()}
		for _, b := range m.ToolUses() {
			args, err := json.Marshal(b.Input)
			if err != nil || b.Input == nil {
				args = []byte("{}")
			}
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   b.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      b.Name,
					Arguments: string(args),
				},
			})
		}
		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return result
}
