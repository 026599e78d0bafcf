package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiProvider talks to the Gemini generateContent API over direct HTTP.
// Gemini function calls carry no ids, so ids are synthesized per call and
// results are sent back addressed by function name.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a Gemini backend.
func NewGeminiProvider(apiKey, model, baseURL string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name.
func (g *GeminiProvider) Name() string { return "gemini" }

// Chat sends one generateContent request.
func (g *GeminiProvider) Chat(ctx context.Context, req ChatRequest) *Response {
	start := time.Now()
	return safeChat(g.Name(), g.model, start, func() *Response {
		endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
			g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

		var result geminiResponse
		if err := postJSON(ctx, g.client, g.Name(), endpoint, nil, g.buildRequestBody(req), &result); err != nil {
			return errorResponse(g.Name(), g.model, err, start)
		}
		if len(result.Candidates) == 0 {
			msg := "no candidates in response"
			if result.PromptFeedback.BlockReason != "" {
				msg = "prompt blocked: " + result.PromptFeedback.BlockReason
			}
			return errorResponse(g.Name(), g.model, &ProviderError{Provider: g.Name(), Message: msg}, start)
		}
		return finish(g.Name(), g.toResponse(&result), start)
	})
}

func (g *GeminiProvider) buildRequestBody(req ChatRequest) geminiRequest {
	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	names := toolNames(req.Messages)
	for _, m := range req.Messages {
		body.Contents = append(body.Contents, geminiContentFrom(m, names))
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = geminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  sanitizeSchema(t.InputSchema, "default"),
			}
		}
		body.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}
	return body
}

func geminiContentFrom(m Message, names map[string]string) geminiContent {
	role := "user"
	if m.Role == RoleAssistant {
		role = "model"
	}
	if len(m.Blocks) == 0 {
		return geminiContent{Role: role, Parts: []geminiPart{{Text: m.Text}}}
	}
	parts := make([]geminiPart, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			parts = append(parts, geminiPart{Text: b.Text})
		case BlockToolUse:
			args := b.Input
			if args == nil {
				args = map[string]any{}
			}
			parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: b.Name, Args: args}})
		case BlockToolResult:
			parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
				Name:     names[b.ToolUseID],
				Response: map[string]any{"result": b.Content},
			}})
		}
	}
	return geminiContent{Role: role, Parts: parts}
}

func (g *GeminiProvider) toResponse(resp *geminiResponse) *Response {
	var text strings.Builder
	var calls []ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, ToolCall{
				ID:    "call_" + uuid.NewString(),
				Name:  part.FunctionCall.Name,
				Input: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	return &Response{
		Text:      text.String(),
		ToolCalls: calls,
		Model:     g.model,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}
}

// generateContent wire types

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	Tools             []geminiTool           `json:"tools,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}
