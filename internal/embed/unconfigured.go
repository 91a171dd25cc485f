package embed

import (
	"context"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// Unconfigured stands in when no embedding provider is set. Every call fails
// fast with ErrCodeNotConfigured so callers can fall back to lexical search.
type Unconfigured struct{}

var _ Embedder = Unconfigured{}

func (Unconfigured) err() error {
	return cerrors.NotConfigured("embeddings").
		WithSuggestion("Set embeddings.provider to ollama or openai")
}

// Embed always fails.
func (u Unconfigured) Embed(context.Context, string) ([]float32, error) { return nil, u.err() }

// EmbedBatch always fails.
func (u Unconfigured) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, u.err()
}

// Dimensions returns 0.
func (Unconfigured) Dimensions() int { return 0 }

// ModelName returns "none".
func (Unconfigured) ModelName() string { return "none" }

// Close is a no-op.
func (Unconfigured) Close() error { return nil }

// IsConfigured reports whether e is backed by a real provider.
func IsConfigured(e Embedder) bool {
	switch v := e.(type) {
	case nil:
		return false
	case Unconfigured, *Unconfigured:
		return false
	case interface{ Inner() Embedder }:
		return IsConfigured(v.Inner())
	default:
		return true
	}
}
