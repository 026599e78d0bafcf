package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/peppercloud/internal/agent"
	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/soyeahso/peppercloud/internal/llm"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/robot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversation struct {
	inputs  []string
	history []llm.Message
	cleared int
}

func (f *fakeConversation) ProcessUserInput(ctx context.Context, text string) agent.Result {
	f.inputs = append(f.inputs, text)
	f.history = append(f.history, llm.UserText(text), llm.AssistantText("echo: "+text))
	return agent.Result{
		Text:      "echo: " + text,
		ToolCalls: []agent.ToolCallRecord{{Name: agent.ToolSpeak, Result: `{"success":true}`}},
		Rounds:    2,
	}
}

func (f *fakeConversation) History() []llm.Message { return append([]llm.Message(nil), f.history...) }
func (f *fakeConversation) ClearHistory()          { f.cleared++; f.history = nil }

type fixedState robot.State

func (s fixedState) State() robot.State { return robot.State(s) }

func TestREPL(t *testing.T) {
	conv := &fakeConversation{}
	state := fixedState{RobotName: "Pepper", Connected: true, BatteryLevel: 70, BatteryKnown: true, Posture: "Standing"}
	in := strings.NewReader("hello\n\n/history\n/state\n/clear\nwave please\n/quit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), in, &out, conv, state))
	assert.Equal(t, []string{"hello", "wave please"}, conv.inputs)
	assert.Equal(t, 1, conv.cleared)

	text := out.String()
	assert.Contains(t, text, "pepper> echo: hello")
	assert.Contains(t, text, "[speak] {\"success\":true}")
	assert.Contains(t, text, "user: hello")
	assert.Contains(t, text, "battery=70%")
	assert.Contains(t, text, "(history cleared)")
	assert.NotContains(t, text, "ignored")
}

func TestREPLStopsOnEOF(t *testing.T) {
	conv := &fakeConversation{}
	require.NoError(t, runREPL(context.Background(), strings.NewReader("hi"), io.Discard, conv, fixedState{}))
	assert.Equal(t, []string{"hi"}, conv.inputs)
}

func TestREPLStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runREPL(ctx, pr, io.Discard, &fakeConversation{}, fixedState{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("REPL did not stop on cancel")
	}
}

func TestPrintHistoryToolMessages(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, []llm.Message{
		llm.UserText("look left"),
		{Role: llm.RoleAssistant, Blocks: []llm.ContentBlock{
			llm.TextBlock("Looking."),
			llm.ToolUseBlock(llm.ToolCall{ID: "tu_1", Name: agent.ToolMoveHead}),
		}},
		{Role: llm.RoleUser, Blocks: []llm.ContentBlock{llm.ToolResultBlock("tu_1", `{"success":true}`)}},
	})
	assert.Contains(t, out.String(), "assistant: Looking. [tools: move_head]")
	assert.Contains(t, out.String(), "tool results: 1")

	out.Reset()
	printHistory(&out, nil)
	assert.Contains(t, out.String(), "(empty)")
}

func TestPrintStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = io.WriteString(w, `{"ok":true,"bridge":"pepper_bridge","version":"2.0.0","naoqi":"2.5.10"}`)
		case "/status":
			_, _ = io.WriteString(w, `{"ok":true,"battery":91,"posture":"Standing","robot_name":"Pepper","autonomous_life":"disabled"}`)
		case "/sensors":
			_, _ = io.WriteString(w, `{"ok":true,"battery":91,"touch":{},"sonar":{"left":1.5,"right":null},"people_count":1}`)
		}
	}))
	defer srv.Close()

	cfg = config.Defaults()
	client := bridge.NewClient(bridge.Options{BaseURL: srv.URL}, logging.New(nil, "silent"))
	client.Connect()
	defer client.Close()

	var out bytes.Buffer
	require.NoError(t, printStatus(context.Background(), &out, client))
	text := out.String()
	assert.Contains(t, text, "pepper_bridge 2.0.0 (NAOqi 2.5.10)")
	assert.Contains(t, text, "battery=91% posture=Standing")
	assert.Contains(t, text, "sonar=1.50m/- people=1")
	assert.Contains(t, text, "model=claude-sonnet-4-20250514")
}

func TestPrintStatusUnreachable(t *testing.T) {
	client := bridge.NewClient(bridge.Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logging.New(nil, "silent"))
	client.Connect()
	defer client.Close()

	var out bytes.Buffer
	assert.Error(t, printStatus(context.Background(), &out, client))
	assert.Contains(t, out.String(), "unreachable")
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PEPPER_HOME", t.TempDir())
	cfgFile, logLevel = "", ""

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--log-level", "silent"))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShowMasksKeys(t *testing.T) {
	t.Setenv("PEPPER_BRIDGE_API_KEY", "bridge-secret-123456")
	out, err := runRoot(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "brid****")
	assert.NotContains(t, out, "bridge-secret-123456")
}

func TestConfigValidate(t *testing.T) {
	out, err := runRoot(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config OK")

	t.Setenv("PEPPER_BRIDGE_URL", "ftp://robot")
	out, err = runRoot(t, "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "bridge.url")
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conversation:\n  robotName: Juliette\n"), 0o600))

	out, err := runRoot(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "robotName: Juliette")
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "peppercloud")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PEPPER_TEST_FROM_DOTENV=yes\n"), 0o600))
	t.Setenv("PEPPER_TEST_FROM_DOTENV", "")
	os.Unsetenv("PEPPER_TEST_FROM_DOTENV")

	require.NoError(t, loadEnvFiles(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "yes", os.Getenv("PEPPER_TEST_FROM_DOTENV"))
}

func TestOrchestratorConfig(t *testing.T) {
	c := config.Defaults()
	oc := orchestratorConfig(c)
	assert.Equal(t, c.Conversation.MaxRounds, oc.MaxRounds)
	assert.Equal(t, c.Conversation.HistoryExchanges, oc.HistoryExchanges)
	assert.Equal(t, "Pepper", oc.RobotName)
}
