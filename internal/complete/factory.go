package complete

import (
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// New creates a completer from configuration. It returns (nil, nil) when
// completion is not configured, which disables contextual summaries.
func New(cfg config.CompletionConfig) (Completer, error) {
	timeout := config.Duration(cfg.Timeout, DefaultTimeout)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllama(OllamaConfig{Host: cfg.Endpoint, Model: cfg.Model, Timeout: timeout}), nil
	case "openai":
		c, err := NewOpenAI(OpenAIConfig{Endpoint: cfg.Endpoint, APIKey: cfg.APIKey, Model: cfg.Model, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, cerrors.ConfigError("unknown completion provider: "+cfg.Provider, nil).
			WithSuggestion("Use one of: ollama, openai, none")
	}
}
