package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, DefaultBridgeURL, cfg.Bridge.URL)
	assert.Equal(t, 15, cfg.Bridge.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Bridge.ReconnectDelaySeconds)
	assert.Equal(t, 5, cfg.Bridge.StateRefreshSeconds)
	assert.Equal(t, 10, cfg.Conversation.MaxRounds)
	assert.Equal(t, 20, cfg.Conversation.HistoryExchanges)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.Style)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, Validate(&cfg))
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultBridgeURL, cfg.Bridge.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
bridge:
  url: http://pepper.local:8888
  apiKey: bridge-secret
  timeoutSeconds: 8
ai:
  provider: openai
  model: gpt-4o
  maxTokens: 512
  temperature: 0.4
  fallbacks:
    - model: claude-sonnet-4-20250514
    - provider: ollama
      model: llama3.1
      baseUrl: http://localhost:11434
conversation:
  maxRounds: 4
  robotName: Rosie
logging:
  level: debug
  style: json
metrics:
  enabled: true
  addr: 0.0.0.0:9100
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://pepper.local:8888", cfg.Bridge.URL)
	assert.Equal(t, "bridge-secret", cfg.Bridge.APIKey)
	assert.Equal(t, 8, cfg.Bridge.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Bridge.ReconnectDelaySeconds, "unset fields keep defaults")
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 512, cfg.AI.MaxTokens)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Temperature, 1e-9)
	require.Len(t, cfg.AI.Fallbacks, 2)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.AI.Fallbacks[0].Model)
	assert.Equal(t, "ollama", cfg.AI.Fallbacks[1].Provider)
	assert.Equal(t, 4, cfg.Conversation.MaxRounds)
	assert.Equal(t, 20, cfg.Conversation.HistoryExchanges)
	assert.Equal(t, "Rosie", cfg.Conversation.RobotName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Style)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:9100", cfg.Metrics.Addr)
	assert.Empty(t, Validate(&cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "config: failed to parse config")
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BRIDGE_KEY", "from-env")
	t.Setenv("TEST_AI_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
bridge:
  apiKey: ${TEST_BRIDGE_KEY}
ai:
  apiKey: ${TEST_AI_KEY}
  fallbacks:
    - model: gemini-2.0-flash
      apiKey: ${TEST_UNSET_VAR_XYZ}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Bridge.APIKey)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "${TEST_UNSET_VAR_XYZ}", cfg.AI.Fallbacks[0].APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PEPPER_BRIDGE_URL", "http://10.0.0.5:8888")
	t.Setenv("PEPPER_BRIDGE_API_KEY", "override")
	t.Setenv("PEPPER_AI_PROVIDER", "Gemini")
	t.Setenv("PEPPER_AI_MODEL", "gemini-2.0-flash")
	t.Setenv("PEPPER_LOG_LEVEL", "DEBUG")
	t.Setenv("PEPPER_METRICS_ADDR", "127.0.0.1:9200")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8888", cfg.Bridge.URL)
	assert.Equal(t, "override", cfg.Bridge.APIKey)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.Addr)
}

func TestEnvOverrideBadTimeoutIgnored(t *testing.T) {
	t.Setenv("PEPPER_BRIDGE_TIMEOUT", "soon")
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Bridge.TimeoutSeconds)
}

func TestMarshalMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Bridge.APIKey = "short"
	cfg.AI.APIKey = "sk-ant-0123456789"
	cfg.AI.Fallbacks = []ModelEntry{{Model: "gpt-4o", APIKey: "sk-openai-abcdef"}}

	out, err := Marshal(cfg)
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "sk-ant-0123456789")
	assert.NotContains(t, s, "sk-openai-abcdef")
	assert.Contains(t, s, "sk-a****")
	assert.Contains(t, s, "****")
	assert.Equal(t, "sk-openai-abcdef", cfg.AI.Fallbacks[0].APIKey, "original config untouched")
}

func TestDurations(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "15s", cfg.Bridge.Timeout().String())
	assert.Equal(t, "3s", cfg.Bridge.ReconnectDelay().String())
	assert.Equal(t, "20s", cfg.Bridge.PingInterval().String())
	assert.Equal(t, "5s", cfg.Bridge.StateRefresh().String())
	assert.Equal(t, "1m0s", cfg.AI.Timeout().String())
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Message: "bad value"}
	assert.Equal(t, "config: bad value", err.Error())
}
