package llm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// captureServer records the decoded JSON body of each request and replies
// with the given status and body.
func captureServer(t *testing.T, status int, reply string, got *map[string]any, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path != nil {
			*path = r.URL.Path
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if got != nil {
			require.NoError(t, json.Unmarshal(body, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// toolTurn is a conversation that already ran one speak tool round.
func toolTurn() []Message {
	return []Message{
		UserText("say hi"),
		{Role: RoleAssistant, Blocks: []ContentBlock{
			TextBlock("Sure."),
			ToolUseBlock(ToolCall{ID: "toolu_1", Name: "speak", Input: map[string]any{"text": "hi"}}),
		}},
		{Role: RoleUser, Blocks: []ContentBlock{ToolResultBlock("toolu_1", `{"success":true}`)}},
	}
}

func speakTool() ToolDefinition {
	return ToolDefinition{
		Name:        "speak",
		Description: "Say something",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":     map[string]any{"type": "string"},
				"animated": map[string]any{"type": "boolean", "default": true},
			},
			"required": []any{"text"},
		},
	}
}
