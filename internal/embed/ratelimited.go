package embed

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder spaces out requests to the inner embedder. One batch
// counts as one request.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder allows rps requests per second with a burst of one.
func NewRateLimitedEmbedder(inner Embedder, rps float64) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for a token, then delegates.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch waits for a token, then delegates.
func (r *RateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.EmbedBatch(ctx, texts)
}

func (r *RateLimitedEmbedder) Dimensions() int   { return r.inner.Dimensions() }
func (r *RateLimitedEmbedder) ModelName() string { return r.inner.ModelName() }
func (r *RateLimitedEmbedder) Close() error      { return r.inner.Close() }

// Inner returns the underlying embedder.
func (r *RateLimitedEmbedder) Inner() Embedder { return r.inner }
