package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultBridgeURL is the bridge address on the robot's default network.
const DefaultBridgeURL = "http://10.0.100.100:8888"

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Bridge: BridgeConfig{
			URL:                   DefaultBridgeURL,
			TimeoutSeconds:        15,
			ReconnectDelaySeconds: 3,
			PingIntervalSeconds:   20,
			StateRefreshSeconds:   5,
		},
		AI: AIConfig{
			ModelEntry: ModelEntry{
				Model: "claude-sonnet-4-20250514",
			},
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
		Conversation: ConversationConfig{
			MaxRounds:        10,
			HistoryExchanges: 20,
			RobotName:        "Pepper",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}
