package embed

import (
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// ProviderType names an embedding provider
type ProviderType string

const (
	// ProviderNone disables embeddings; semantic search is skipped.
	ProviderNone ProviderType = "none"

	// ProviderOllama uses the Ollama /api/embed endpoint.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses any OpenAI-compatible embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic uses hash-based embeddings with no external service.
	ProviderStatic ProviderType = "static"
)

// New creates an embedder from configuration. An empty or "none" provider
// yields Unconfigured. The result is wrapped with a rate limiter when
// requests_per_second is set and with an LRU cache when cache_size > 0.
func New(cfg config.EmbeddingsConfig) (Embedder, error) {
	timeout := config.Duration(cfg.Timeout, DefaultTimeout)

	var base Embedder
	switch ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case "", ProviderNone:
		return Unconfigured{}, nil
	case ProviderOllama:
		base = NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
		})
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		base = e
	case ProviderStatic:
		base = NewStaticEmbedder(cfg.Dimensions)
	default:
		return nil, cerrors.ConfigError("unknown embeddings provider: "+cfg.Provider, nil).
			WithSuggestion("Use one of: ollama, openai, static, none")
	}

	if cfg.RequestsPerSecond > 0 {
		base = NewRateLimitedEmbedder(base, cfg.RequestsPerSecond)
	}
	if cfg.CacheSize > 0 {
		base = NewCachedEmbedder(base, cfg.CacheSize)
	}
	return base, nil
}
