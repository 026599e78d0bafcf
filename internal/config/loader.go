package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential and
// address fields.
func expandSensitiveFields(cfg *Config) {
	cfg.Bridge.URL = expandEnvVars(cfg.Bridge.URL)
	cfg.Bridge.EventsURL = expandEnvVars(cfg.Bridge.EventsURL)
	cfg.Bridge.APIKey = expandEnvVars(cfg.Bridge.APIKey)
	cfg.AI.APIKey = expandEnvVars(cfg.AI.APIKey)
	cfg.AI.BaseURL = expandEnvVars(cfg.AI.BaseURL)
	for i := range cfg.AI.Fallbacks {
		cfg.AI.Fallbacks[i].APIKey = expandEnvVars(cfg.AI.Fallbacks[i].APIKey)
		cfg.AI.Fallbacks[i].BaseURL = expandEnvVars(cfg.AI.Fallbacks[i].BaseURL)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// Marshal renders the config as YAML with credentials masked.
func Marshal(cfg Config) ([]byte, error) {
	cfg.Bridge.APIKey = mask(cfg.Bridge.APIKey)
	cfg.AI.APIKey = mask(cfg.AI.APIKey)
	fallbacks := make([]ModelEntry, len(cfg.AI.Fallbacks))
	for i, fb := range cfg.AI.Fallbacks {
		fb.APIKey = mask(fb.APIKey)
		fallbacks[i] = fb
	}
	cfg.AI.Fallbacks = fallbacks
	return yaml.Marshal(cfg)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Bridge.URL == "" {
		cfg.Bridge.URL = d.Bridge.URL
	}
	if cfg.Bridge.TimeoutSeconds == 0 {
		cfg.Bridge.TimeoutSeconds = d.Bridge.TimeoutSeconds
	}
	if cfg.Bridge.ReconnectDelaySeconds == 0 {
		cfg.Bridge.ReconnectDelaySeconds = d.Bridge.ReconnectDelaySeconds
	}
	if cfg.Bridge.PingIntervalSeconds == 0 {
		cfg.Bridge.PingIntervalSeconds = d.Bridge.PingIntervalSeconds
	}
	if cfg.Bridge.StateRefreshSeconds == 0 {
		cfg.Bridge.StateRefreshSeconds = d.Bridge.StateRefreshSeconds
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = d.AI.Model
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = d.AI.MaxTokens
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = d.AI.TimeoutSeconds
	}
	if cfg.Conversation.MaxRounds == 0 {
		cfg.Conversation.MaxRounds = d.Conversation.MaxRounds
	}
	if cfg.Conversation.HistoryExchanges == 0 {
		cfg.Conversation.HistoryExchanges = d.Conversation.HistoryExchanges
	}
	if cfg.Conversation.RobotName == "" {
		cfg.Conversation.RobotName = d.Conversation.RobotName
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = d.Logging.Style
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = d.Metrics.Addr
	}
}

// applyEnvOverrides reads PEPPER_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PEPPER_BRIDGE_URL"); v != "" {
		cfg.Bridge.URL = v
	}
	if v := os.Getenv("PEPPER_BRIDGE_API_KEY"); v != "" {
		cfg.Bridge.APIKey = v
	}
	if v := os.Getenv("PEPPER_BRIDGE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Bridge.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("PEPPER_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("PEPPER_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("PEPPER_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("PEPPER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PEPPER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
}
