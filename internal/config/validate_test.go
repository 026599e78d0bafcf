package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, len(issues))
	for i, is := range issues {
		paths[i] = is.Path
	}
	return paths
}

func TestValidate(t *testing.T) {
	hot := 3.5

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"defaults", func(*Config) {}, nil},
		{"missing bridge url", func(c *Config) { c.Bridge.URL = "" }, []string{"bridge.url"}},
		{"bad bridge scheme", func(c *Config) { c.Bridge.URL = "ftp://robot" }, []string{"bridge.url"}},
		{"events url must be ws", func(c *Config) { c.Bridge.EventsURL = "http://robot/ws/events" }, []string{"bridge.eventsUrl"}},
		{"negative timeout", func(c *Config) { c.Bridge.TimeoutSeconds = -1 }, []string{"bridge.timeoutSeconds"}},
		{"unknown provider", func(c *Config) { c.AI.Provider = "mock" }, []string{"ai.provider"}},
		{"missing model", func(c *Config) { c.AI.Model = "" }, []string{"ai.model"}},
		{"temperature range", func(c *Config) { c.AI.Temperature = &hot }, []string{"ai.temperature"}},
		{"fallback without model", func(c *Config) {
			c.AI.Fallbacks = []ModelEntry{{Provider: "ollama"}}
		}, []string{"ai.fallbacks[0].model"}},
		{"zero rounds", func(c *Config) { c.Conversation.MaxRounds = 0 }, []string{"conversation.maxRounds"}},
		{"zero window", func(c *Config) { c.Conversation.HistoryExchanges = 0 }, []string{"conversation.historyExchanges"}},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, []string{"logging.level"}},
		{"log style", func(c *Config) { c.Logging.Style = "compact" }, []string{"logging.style"}},
		{"metrics addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = "9464"
		}, []string{"metrics.addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			if tt.want == nil {
				assert.Empty(t, issues)
				return
			}
			require.NotEmpty(t, issues)
			assert.Equal(t, tt.want, issuePaths(issues))
		})
	}
}

func TestValidationIssueString(t *testing.T) {
	is := ValidationIssue{Path: "ai.model", Message: "model is required"}
	assert.Equal(t, "ai.model: model is required", is.String())
}
