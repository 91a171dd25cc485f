// Package embed provides clients for embedding services and decorators that
// cache or throttle them.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants
const (
	// DefaultBatchSize is the number of texts sent per request by callers
	// that batch.
	DefaultBatchSize = 16

	// MaxBatchSize caps a single request to bound memory.
	MaxBatchSize = 256

	// DefaultTimeout bounds every outbound embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultCacheSize is the number of query embeddings kept in memory.
	// At 768 dimensions * 4 bytes * 256 entries that is under 1MB.
	DefaultCacheSize = 256

	// StaticDimensions is the vector size of the static embedder.
	StaticDimensions = 256
)

// Ollama defaults
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

// DefaultOpenAIModel is used when the openai provider has no model set.
const DefaultOpenAIModel = "text-embedding-3-small"

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result has one
	// vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, or 0 if not yet known
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
