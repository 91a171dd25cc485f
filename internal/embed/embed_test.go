package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// mockEmbedder is a test double that counts calls and records batch inputs
type mockEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64

	mu      sync.Mutex
	batches [][]string
}

func (m *mockEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int   { return 2 }
func (m *mockEmbedder) ModelName() string { return "mock-model" }
func (m *mockEmbedder) Close() error      { return nil }

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	// Given: a cached embedder
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	// When: embedding the same text twice
	a, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	b, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)

	// Then: the inner embedder is called once
	assert.Equal(t, a, b)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_BatchSendsOnlyMisses(t *testing.T) {
	// Given: one text already cached
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)
	_, err := cached.Embed(context.Background(), "bb")
	require.NoError(t, err)

	// When: embedding a batch containing it
	vecs, err := cached.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	// Then: only the misses are sent and results keep input order
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
	require.Len(t, inner.batches, 1)
	assert.Equal(t, []string{"a", "ccc"}, inner.batches[0])
}

func TestCachedEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		_, err := cached.Embed(ctx, s)
		require.NoError(t, err)
	}
	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, int64(4), inner.embedCalls.Load())
	assert.Equal(t, 2, cached.Len())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	inner := &mockEmbedder{}
	vecs, err := NewCachedEmbedder(inner, 0).EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Equal(t, int64(0), inner.batchCalls.Load())
}

func TestRateLimitedEmbedder_Delegates(t *testing.T) {
	inner := &mockEmbedder{}
	r := NewRateLimitedEmbedder(inner, 1000)

	vecs, err := r.EmbedBatch(context.Background(), []string{"x", "yy"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	_, err = r.Embed(context.Background(), "z")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load())
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, "mock-model", r.ModelName())
}

func TestRateLimitedEmbedder_CancelledContext(t *testing.T) {
	// Given: a limiter whose only token is spent
	inner := &mockEmbedder{}
	r := NewRateLimitedEmbedder(inner, 0.001)
	_, err := r.Embed(context.Background(), "first")
	require.NoError(t, err)

	// When: a second call arrives with a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Embed(ctx, "second")

	// Then: it fails without reaching the inner embedder
	require.Error(t, err)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
}

func TestUnconfigured_FailsFast(t *testing.T) {
	var e Embedder = Unconfigured{}

	_, err := e.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrCodeNotConfigured))

	_, err = e.EmbedBatch(context.Background(), []string{"q"})
	assert.True(t, cerrors.HasCode(err, cerrors.ErrCodeNotConfigured))
	assert.Equal(t, 0, e.Dimensions())
	assert.False(t, IsConfigured(e))
}

func TestIsConfigured_SeesThroughDecorators(t *testing.T) {
	assert.False(t, IsConfigured(nil))
	assert.False(t, IsConfigured(NewCachedEmbedder(Unconfigured{}, 1)))
	assert.True(t, IsConfigured(NewCachedEmbedder(NewStaticEmbedder(8), 1)))
	assert.True(t, IsConfigured(NewRateLimitedEmbedder(&mockEmbedder{}, 1)))
}

func TestNew_Providers(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingsConfig
		check   func(t *testing.T, e Embedder)
		wantErr string
	}{
		{
			name: "empty is unconfigured",
			cfg:  config.EmbeddingsConfig{},
			check: func(t *testing.T, e Embedder) {
				assert.IsType(t, Unconfigured{}, e)
			},
		},
		{
			name: "none is unconfigured",
			cfg:  config.EmbeddingsConfig{Provider: "None", CacheSize: 10},
			check: func(t *testing.T, e Embedder) {
				assert.IsType(t, Unconfigured{}, e)
			},
		},
		{
			name: "ollama wrapped in cache",
			cfg:  config.EmbeddingsConfig{Provider: "ollama", Model: "m", CacheSize: 10},
			check: func(t *testing.T, e Embedder) {
				c, ok := e.(*CachedEmbedder)
				require.True(t, ok)
				assert.IsType(t, &OllamaEmbedder{}, c.Inner())
				assert.Equal(t, "m", e.ModelName())
			},
		},
		{
			name: "rate limiter inside cache",
			cfg:  config.EmbeddingsConfig{Provider: "static", CacheSize: 10, RequestsPerSecond: 5},
			check: func(t *testing.T, e Embedder) {
				c, ok := e.(*CachedEmbedder)
				require.True(t, ok)
				r, ok := c.Inner().(*RateLimitedEmbedder)
				require.True(t, ok)
				assert.IsType(t, &StaticEmbedder{}, r.Inner())
			},
		},
		{
			name: "openai with endpoint",
			cfg:  config.EmbeddingsConfig{Provider: "openai", Endpoint: "http://localhost:1234/v1"},
			check: func(t *testing.T, e Embedder) {
				assert.IsType(t, &OpenAIEmbedder{}, e)
				assert.Equal(t, DefaultOpenAIModel, e.ModelName())
			},
		},
		{
			name:    "openai without key or endpoint",
			cfg:     config.EmbeddingsConfig{Provider: "openai"},
			wantErr: cerrors.ErrCodeNotConfigured,
		},
		{
			name:    "unknown provider",
			cfg:     config.EmbeddingsConfig{Provider: "llama"},
			wantErr: cerrors.ErrCodeConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, cerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, e)
		})
	}
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "getUserById returns the user")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "getUserById returns the user")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, squaredNorm(a), 1e-5)
}

func TestStaticEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewStaticEmbedder(0)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "kubernetes deployment rollout")
	near, _ := e.Embed(ctx, "rollout of a kubernetes deployment")
	far, _ := e.Embed(ctx, "banana bread recipe")

	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestStaticEmbedder_BlankAndClosed(t *testing.T) {
	e := NewStaticEmbedder(8)

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)

	require.NoError(t, e.Close())
	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func squaredNorm(v []float32) float64 {
	return dot(v, v)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
