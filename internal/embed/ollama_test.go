package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	// Given: an Ollama server returning one vector per input
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		out := ollamaEmbedResponse{Model: got.Model}
		for i := range got.Input {
			out.Embeddings = append(out.Embeddings, []float64{float64(i), 0.5, 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL + "/", Model: "nomic"})
	assert.Equal(t, 0, e.Dimensions())

	// When: embedding two texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})

	// Then: vectors arrive in order and dimensions are learned
	require.NoError(t, err)
	assert.Equal(t, "nomic", got.Model)
	assert.Equal(t, []string{"a", "b"}, got.Input)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0.5, 1}, vecs[1])
	assert.Equal(t, 3, e.Dimensions())
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1}}})
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL}).EmbedBatch(context.Background(), []string{"a", "b"})

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeEmbeddingFailed, cerrors.GetCode(err))
}

func TestOllamaEmbedder_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model \"x\" not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "x"}).Embed(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeEmbeddingFailed, cerrors.GetCode(err))
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedder_TimeoutIsRetryable(t *testing.T) {
	// Given: a server slower than the embedder timeout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Timeout: 50 * time.Millisecond})

	// When: embedding
	_, err := e.Embed(context.Background(), "slow")

	// Then: the failure is a retryable timeout
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeNetworkTimeout, cerrors.GetCode(err))
	assert.True(t, cerrors.IsRetryable(err))
}

func TestOllamaEmbedder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaEmbedder(OllamaConfig{Host: url}).Embed(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeNetworkUnavailable, cerrors.GetCode(err))
}

func TestOllamaEmbedder_ClosedAndLimits(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{Dimensions: 768})
	assert.Equal(t, 768, e.Dimensions())
	assert.Equal(t, DefaultOllamaModel, e.ModelName())

	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)

	_, err = e.EmbedBatch(context.Background(), make([]string, MaxBatchSize+1))
	assert.Equal(t, cerrors.ErrCodeInvalidInput, cerrors.GetCode(err))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	_, err = e.Embed(context.Background(), "q")
	assert.Error(t, err)
}
