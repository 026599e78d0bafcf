package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/peppercloud/internal/config"
	"github.com/soyeahso/peppercloud/internal/logging"
)

// Backend names.
const (
	BackendClaude = "claude"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

// Config selects and configures one backend.
type Config struct {
	Provider string // empty: detected from Model
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// keyEnv is the conventional API key variable per backend.
var keyEnv = map[string]string{
	BackendClaude: "ANTHROPIC_API_KEY",
	BackendOpenAI: "OPENAI_API_KEY",
	BackendGemini: "GEMINI_API_KEY",
}

// DetectBackend picks a backend from a model name.
func DetectBackend(model string) (string, error) {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"):
		return BackendClaude, nil
	case strings.HasPrefix(m, "gpt-"),
		strings.HasPrefix(m, "o1"),
		strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"):
		return BackendOpenAI, nil
	case strings.HasPrefix(m, "gemini-"):
		return BackendGemini, nil
	}
	return "", fmt.Errorf("cannot detect provider for model %q; set ai.provider", model)
}

// New constructs the backend named by cfg. A backend that needs an API key
// fails construction when none is configured or found in its environment
// variable.
func New(cfg Config, log *logging.Logger) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	backend := strings.ToLower(cfg.Provider)
	if backend == "" {
		var err error
		if backend, err = DetectBackend(cfg.Model); err != nil {
			return nil, err
		}
	}

	apiKey := cfg.APIKey
	if env, ok := keyEnv[backend]; ok && apiKey == "" {
		apiKey = os.Getenv(env)
		if apiKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key (set ai.apiKey or %s)", backend, env)
		}
	}

	var p Provider
	switch backend {
	case BackendClaude:
		p = NewClaudeProvider(apiKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case BackendOpenAI:
		p = NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case BackendGemini:
		p = NewGeminiProvider(apiKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case BackendOllama:
		p = NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	log.Sub("llm").Info().
		Str("provider", p.Name()).
		Str("model", cfg.Model).
		Msg("AI provider configured")
	return p, nil
}

// NewFromConfig builds the primary provider and its fallbacks. With
// fallbacks configured the result is a *Failover.
func NewFromConfig(ai config.AIConfig, log *logging.Logger) (Provider, error) {
	primary, err := New(configFor(ai.ModelEntry, ai.Timeout()), log)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	if len(ai.Fallbacks) == 0 {
		return primary, nil
	}

	fallbacks := make([]Provider, 0, len(ai.Fallbacks))
	for i, fb := range ai.Fallbacks {
		p, err := New(configFor(fb, ai.Timeout()), log)
		if err != nil {
			return nil, fmt.Errorf("fallback %d: %w", i, err)
		}
		fallbacks = append(fallbacks, p)
	}
	return NewFailover(log, primary, fallbacks...), nil
}

func configFor(m config.ModelEntry, timeout time.Duration) Config {
	return Config{
		Provider: m.Provider,
		Model:    m.Model,
		APIKey:   m.APIKey,
		BaseURL:  m.BaseURL,
		Timeout:  timeout,
	}
}
