package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/peppercloud/internal/bridge"
	"github.com/soyeahso/peppercloud/internal/llm"
	"github.com/soyeahso/peppercloud/internal/logging"
	"github.com/soyeahso/peppercloud/internal/metrics"
)

const (
	defaultMaxRounds        = 10
	defaultHistoryExchanges = 20
	defaultLowBattery       = 15

	// RoundCapText is returned when the model keeps requesting tools past
	// the round cap.
	RoundCapText = "I got carried away with actions. Let me know if you need anything else."
)

// Config configures the orchestrator.
type Config struct {
	MaxRounds        int // provider calls per user turn
	HistoryExchanges int // history window is 2*HistoryExchanges messages
	MaxTokens        int
	Temperature      *float64
	RobotName        string
	ExtraPrompt      string

	// LowBatteryThreshold is the battery percent at or below which the
	// model is told to refuse locomotion.
	LowBatteryThreshold int
}

// ToolCallRecord is one audit trail entry. Result is the JSON string that
// was fed back to the model.
type ToolCallRecord struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Result string         `json:"result"`
}

// Result is the outcome of one user turn.
type Result struct {
	Text      string           `json:"text"`
	ToolCalls []ToolCallRecord `json:"toolCalls"`
	Model     string           `json:"model,omitempty"`
	Rounds    int              `json:"rounds"`

	// Photo is the most recent picture captured during the turn, untruncated.
	Photo *bridge.Picture `json:"-"`
}

// ResponseCallback is notified with every final result. Errors and panics
// are logged and otherwise ignored.
type ResponseCallback func(ctx context.Context, res Result) error

// Orchestrator runs the multi-round tool-calling loop for each user turn.
// It owns the conversation history.
type Orchestrator struct {
	cfg      Config
	provider llm.Provider
	executor *Executor
	tools    []llm.ToolDefinition
	log      *logging.Logger

	turnMu sync.Mutex // serializes turns

	mu        sync.RWMutex // guards history and callbacks
	history   []llm.Message
	callbacks []ResponseCallback
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config, provider llm.Provider, executor *Executor, log *logging.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.HistoryExchanges <= 0 {
		cfg.HistoryExchanges = defaultHistoryExchanges
	}
	if cfg.LowBatteryThreshold == 0 {
		cfg.LowBatteryThreshold = defaultLowBattery
	}
	return &Orchestrator{
		cfg:      cfg,
		provider: provider,
		executor: executor,
		tools:    Tools(),
		log:      log.Sub("agent"),
	}
}

// ProcessUserInput runs one user turn to completion: provider calls and
// tool executions alternate until the model answers without tools or the
// round cap is reached.
func (o *Orchestrator) ProcessUserInput(ctx context.Context, text string) Result {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	start := time.Now()
	o.log.Info().Str("provider", o.provider.Name()).Int("historyLen", o.historyLen()).Msg("processing user input")

	o.mu.Lock()
	o.history = append(o.history, llm.UserText(text))
	o.trimLocked()
	o.mu.Unlock()

	var (
		calls []ToolCallRecord
		photo *bridge.Picture
		model string
	)

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		resp := o.provider.Chat(ctx, llm.ChatRequest{
			System:      o.systemPrompt(),
			Messages:    o.History(),
			Tools:       o.tools,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		if resp == nil {
			resp = &llm.Response{
				Text:       llm.ErrorText(fmt.Errorf("%s returned no response", o.provider.Name())),
				StopReason: llm.StopError,
			}
		}
		if resp.Model != "" {
			model = resp.Model
		}

		if !resp.HasToolCalls() {
			if resp.Err != nil {
				o.log.Warn().Err(resp.Err).Int("round", round).Msg("provider failed; replying with error text")
			}
			o.mu.Lock()
			if resp.Text != "" {
				o.history = append(o.history, llm.AssistantText(resp.Text))
			}
			o.trimLocked()
			o.mu.Unlock()

			res := Result{Text: resp.Text, ToolCalls: calls, Model: model, Rounds: round, Photo: photo}
			metrics.RecordRounds(round)
			o.log.Info().
				Str("model", model).
				Int("rounds", round).
				Int("toolCalls", len(calls)).
				Dur("duration", time.Since(start)).
				Msg("response generated")
			o.notify(ctx, res)
			return res
		}

		o.log.Info().Int("round", round).Int("toolCalls", len(resp.ToolCalls)).Msg("executing tool calls")

		blocks := make([]llm.ContentBlock, 0, len(resp.ToolCalls)+1)
		if resp.Text != "" {
			blocks = append(blocks, llm.TextBlock(resp.Text))
		}
		for _, tc := range resp.ToolCalls {
			blocks = append(blocks, llm.ToolUseBlock(tc))
		}
		o.appendMessage(llm.Message{Role: llm.RoleAssistant, Blocks: blocks})

		results := make([]llm.ContentBlock, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			out := o.executor.Execute(ctx, tc.Name, tc.Input)
			content := out.Result.JSON()
			if out.Photo != nil {
				photo = out.Photo
			}
			results = append(results, llm.ToolResultBlock(tc.ID, content))
			calls = append(calls, ToolCallRecord{ID: tc.ID, Name: tc.Name, Input: tc.Input, Result: content})
		}
		o.appendMessage(llm.Message{Role: llm.RoleUser, Blocks: results})
	}

	o.log.Warn().Int("maxRounds", o.cfg.MaxRounds).Int("toolCalls", len(calls)).Msg("hit max tool-call rounds")
	metrics.RecordRounds(o.cfg.MaxRounds)
	return Result{Text: RoundCapText, ToolCalls: calls, Model: model, Rounds: o.cfg.MaxRounds, Photo: photo}
}

// OnResponse registers a callback for final results.
func (o *Orchestrator) OnResponse(cb ResponseCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, cb)
}

// History returns a copy of the conversation history.
func (o *Orchestrator) History() []llm.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]llm.Message(nil), o.history...)
}

// ClearHistory empties the conversation history. It waits for an
// in-flight turn to finish.
func (o *Orchestrator) ClearHistory() {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
	o.log.Info().Msg("conversation history cleared")
}

func (o *Orchestrator) systemPrompt() string {
	return BuildSystemPrompt(PromptConfig{
		RobotName:           o.cfg.RobotName,
		State:               o.executor.Robot().State(),
		LowBatteryThreshold: o.cfg.LowBatteryThreshold,
		ExtraPrompt:         o.cfg.ExtraPrompt,
	})
}

func (o *Orchestrator) appendMessage(m llm.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, m)
}

func (o *Orchestrator) historyLen() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.history)
}

// trimLocked keeps the last 2*HistoryExchanges messages. A window must not
// open on an assistant message or on tool results whose tool_use was cut,
// and never starts after the latest user text, so a turn longer than the
// window is kept whole.
func (o *Orchestrator) trimLocked() {
	limit := 2 * o.cfg.HistoryExchanges
	if len(o.history) <= limit {
		return
	}
	turnStart := -1
	for i := len(o.history) - 1; i >= 0; i-- {
		if m := o.history[i]; m.Role == llm.RoleUser && !m.IsToolResult() {
			turnStart = i
			break
		}
	}
	cut := len(o.history) - limit
	for cut < len(o.history) && (o.history[cut].Role == llm.RoleAssistant || o.history[cut].IsToolResult()) {
		cut++
	}
	if turnStart >= 0 && cut > turnStart {
		cut = turnStart
	}
	o.history = append([]llm.Message(nil), o.history[cut:]...)
}

func (o *Orchestrator) notify(ctx context.Context, res Result) {
	o.mu.RLock()
	cbs := append([]ResponseCallback(nil), o.callbacks...)
	o.mu.RUnlock()

	for i, cb := range cbs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					o.log.Error().Int("callback", i).Interface("panic", rec).Msg("response callback panicked")
				}
			}()
			if err := cb(ctx, res); err != nil {
				o.log.Warn().Int("callback", i).Err(err).Msg("response callback failed")
			}
		}()
	}
}
