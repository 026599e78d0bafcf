package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/peppercloud/internal/version"
)

const defaultTimeout = 60 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends body as JSON and decodes a 200 response into out. Non-200
// responses become a *ProviderError carrying the status code.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: provider, Code: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("failed to parse response: %v", err)}
	}
	return nil
}

// apiErrorMessage extracts the error message from the common
// {"error": {"message": ...}} and {"error": "..."} shapes.
func apiErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}

// sanitizeSchema returns a deep copy of schema without the keys listed.
func sanitizeSchema(schema map[string]any, drop ...string) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		skip := false
		for _, d := range drop {
			if k == d {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		out[k] = sanitizeValue(v, drop)
	}
	return out
}

func sanitizeValue(v any, drop []string) any {
	switch t := v.(type) {
	case map[string]any:
		return sanitizeSchema(t, drop...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e, drop)
		}
		return out
	default:
		return v
	}
}

// toolNames maps tool_use ids to tool names across the conversation, for
// backends that address results by name.
func toolNames(msgs []Message) map[string]string {
	names := make(map[string]string)
	for _, m := range msgs {
		for _, b := range m.ToolUses() {
			names[b.ID] = b.Name
		}
	}
	return names
}
