package config

import "time"

// Config is the root configuration for peppercloud.
type Config struct {
	Bridge       BridgeConfig       `yaml:"bridge,omitempty"`
	AI           AIConfig           `yaml:"ai,omitempty"`
	Conversation ConversationConfig `yaml:"conversation,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
	Metrics      MetricsConfig      `yaml:"metrics,omitempty"`
}

// BridgeConfig locates the bridge service running on the robot.
type BridgeConfig struct {
	URL                   string `yaml:"url,omitempty"`       // e.g. http://10.0.100.100:8888
	EventsURL             string `yaml:"eventsUrl,omitempty"` // derived from URL when empty
	APIKey                string `yaml:"apiKey,omitempty"`
	TimeoutSeconds        int    `yaml:"timeoutSeconds,omitempty"`
	ReconnectDelaySeconds int    `yaml:"reconnectDelaySeconds,omitempty"`
	PingIntervalSeconds   int    `yaml:"pingIntervalSeconds,omitempty"`
	StateRefreshSeconds   int    `yaml:"stateRefreshSeconds,omitempty"`
}

// Timeout is the per-request bound for bridge HTTP calls.
func (b BridgeConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// ReconnectDelay is the fixed wait between event stream reconnect attempts.
func (b BridgeConfig) ReconnectDelay() time.Duration {
	return time.Duration(b.ReconnectDelaySeconds) * time.Second
}

// PingInterval is the event stream keepalive period.
func (b BridgeConfig) PingInterval() time.Duration {
	return time.Duration(b.PingIntervalSeconds) * time.Second
}

// StateRefresh is the robot state snapshot refresh period.
func (b BridgeConfig) StateRefresh() time.Duration {
	return time.Duration(b.StateRefreshSeconds) * time.Second
}

// ModelEntry identifies one hosted chat-completion backend.
type ModelEntry struct {
	Provider string `yaml:"provider,omitempty"` // "claude" | "openai" | "gemini" | "ollama"; detected from model when empty
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
	BaseURL  string `yaml:"baseUrl,omitempty"`
}

// AIConfig configures the primary AI backend and its fallbacks.
type AIConfig struct {
	ModelEntry     `yaml:",inline"`
	MaxTokens      int          `yaml:"maxTokens,omitempty"`
	Temperature    *float64     `yaml:"temperature,omitempty"`
	TimeoutSeconds int          `yaml:"timeoutSeconds,omitempty"`
	Fallbacks      []ModelEntry `yaml:"fallbacks,omitempty"`
}

// Timeout bounds a single provider call.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ConversationConfig controls the orchestrator loop.
type ConversationConfig struct {
	MaxRounds        int    `yaml:"maxRounds,omitempty"`
	HistoryExchanges int    `yaml:"historyExchanges,omitempty"`
	RobotName        string `yaml:"robotName,omitempty"`
	ExtraPrompt      string `yaml:"extraPrompt,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}
