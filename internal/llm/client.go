// Package llm defines the AI provider interface, the canonical conversation
// model shared by every backend, and the backends themselves.
//
// Each backend encodes tool calls differently on the wire (Claude content
// blocks, OpenAI tool_calls with JSON-string arguments, Gemini
// functionCall parts without ids). Callers only ever see Message,
// ContentBlock and Response.
package llm

import (
	"context"
	"strings"
	"time"
)

// Role identifies the speaker of a message.
type Role string

// Role constants for messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags a content block.
type BlockType string

// Block types.
const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of structured message content.
//
// text blocks use Text. tool_use blocks use ID, Name and Input.
// tool_result blocks use ToolUseID and Content.
type ContentBlock struct {
	Type      BlockType      `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// TextBlock builds a text block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool_use block from a tool call.
func ToolUseBlock(tc ToolCall) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: tc.ID, Name: tc.Name, Input: tc.Input}
}

// ToolResultBlock builds a tool_result block answering the given tool_use id.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is a single turn in a conversation. Content is either plain Text
// or an ordered list of Blocks.
type Message struct {
	Role   Role           `json:"role"`
	Text   string         `json:"text,omitempty"`
	Blocks []ContentBlock `json:"blocks,omitempty"`
}

// UserText builds a plain user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantText builds a plain assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// PlainText returns the message text, joining text blocks for structured
// content.
func (m Message) PlainText() string {
	if len(m.Blocks) == 0 {
		return m.Text
	}
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// IsToolResult reports whether the message carries tool results.
func (m Message) IsToolResult() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockToolResult {
			return true
		}
	}
	return false
}

// ToolUses returns the tool_use blocks of the message.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// StopReason explains why a response ended.
type StopReason string

// Stop reasons.
const (
	StopEnd           StopReason = "end"
	StopToolRequested StopReason = "tool_requested"
	StopError         StopReason = "error"
)

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Response is the result of one provider call. It is never mutated after
// it is returned.
type Response struct {
	Text       string        `json:"text"`
	ToolCalls  []ToolCall    `json:"toolCalls,omitempty"`
	StopReason StopReason    `json:"stopReason"`
	Model      string        `json:"model,omitempty"`
	Usage      Usage         `json:"usage"`
	Duration   time.Duration `json:"duration,omitempty"`

	// Err is set when StopReason is StopError.
	Err *ProviderError `json:"-"`
}

// HasToolCalls reports whether the model asked for tools.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ChatRequest is the input to a Chat call.
type ChatRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature *float64
}

// Provider is the interface every AI backend implements.
//
// Chat never returns a Go error and never panics: transport, status and
// decode failures come back as a Response with StopReason StopError and
// an apology text.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) *Response

	// Name returns the provider name (e.g., "claude", "openai").
	Name() string
}
