package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var validProviders = []string{"claude", "openai", "gemini", "ollama"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Bridge validation
	issues = append(issues, validateURL("bridge.url", cfg.Bridge.URL, true, "http", "https")...)
	issues = append(issues, validateURL("bridge.eventsUrl", cfg.Bridge.EventsURL, false, "ws", "wss")...)
	durations := []struct {
		path string
		v    int
	}{
		{"bridge.timeoutSeconds", cfg.Bridge.TimeoutSeconds},
		{"bridge.reconnectDelaySeconds", cfg.Bridge.ReconnectDelaySeconds},
		{"bridge.pingIntervalSeconds", cfg.Bridge.PingIntervalSeconds},
		{"bridge.stateRefreshSeconds", cfg.Bridge.StateRefreshSeconds},
	}
	for _, d := range durations {
		if d.v < 0 {
			issues = append(issues, ValidationIssue{
				Path:    d.path,
				Message: fmt.Sprintf("must not be negative, got %d", d.v),
			})
		}
	}

	// AI validation
	if cfg.AI.Model == "" {
		issues = append(issues, ValidationIssue{Path: "ai.model", Message: "model is required"})
	}
	if cfg.AI.Provider != "" && !slices.Contains(validProviders, cfg.AI.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "ai.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.AI.Provider),
		})
	}
	if cfg.AI.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "ai.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.AI.MaxTokens),
		})
	}
	if t := cfg.AI.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "ai.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", *t),
		})
	}
	for i, fb := range cfg.AI.Fallbacks {
		path := fmt.Sprintf("ai.fallbacks[%d]", i)
		if fb.Model == "" {
			issues = append(issues, ValidationIssue{Path: path + ".model", Message: "model is required"})
		}
		if fb.Provider != "" && !slices.Contains(validProviders, fb.Provider) {
			issues = append(issues, ValidationIssue{
				Path:    path + ".provider",
				Message: fmt.Sprintf("must be one of %v, got %q", validProviders, fb.Provider),
			})
		}
	}

	// Conversation validation
	if cfg.Conversation.MaxRounds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.maxRounds",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Conversation.MaxRounds),
		})
	}
	if cfg.Conversation.HistoryExchanges < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "conversation.historyExchanges",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Conversation.HistoryExchanges),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	// Metrics validation
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "metrics.addr",
				Message: fmt.Sprintf("must be host:port, got %q", cfg.Metrics.Addr),
			})
		}
	}

	return issues
}

func validateURL(path, raw string, required bool, schemes ...string) []ValidationIssue {
	if raw == "" {
		if required {
			return []ValidationIssue{{Path: path, Message: "url is required"}}
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return []ValidationIssue{{Path: path, Message: fmt.Sprintf("invalid url %q", raw)}}
	}
	if !slices.Contains(schemes, u.Scheme) {
		return []ValidationIssue{{
			Path:    path,
			Message: fmt.Sprintf("scheme must be one of %v, got %q", schemes, u.Scheme),
		}}
	}
	return nil
}
