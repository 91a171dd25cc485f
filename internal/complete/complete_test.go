package complete

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

func TestOllama_Complete_ReturnsReply(t *testing.T) {
	// Given: an Ollama server that echoes a reply
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: RoleAssistant, Content: "  a short summary \n"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := NewOllama(OllamaConfig{Host: srv.URL + "/", Model: "tiny"})

	// When: completing
	out, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

	// Then: the trimmed reply is returned and the request is non-streaming
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
	assert.Equal(t, "tiny", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestOllama_Complete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(OllamaConfig{Host: srv.URL}).Complete(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllama_Complete_TimeoutIsRetryable(t *testing.T) {
	// Given: a server slower than the completer timeout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOllama(OllamaConfig{Host: srv.URL, Timeout: 50 * time.Millisecond})

	// When: completing
	_, err := c.Complete(context.Background(), nil)

	// Then: the error is a network timeout
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeNetworkTimeout, cerrors.GetCode(err))
	assert.True(t, cerrors.IsRetryable(err))
}

func TestNew_Providers(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CompletionConfig
		wantNil  bool
		wantErr  bool
		wantType any
	}{
		{name: "empty disables", cfg: config.CompletionConfig{}, wantNil: true},
		{name: "none disables", cfg: config.CompletionConfig{Provider: "none"}, wantNil: true},
		{name: "ollama", cfg: config.CompletionConfig{Provider: "Ollama"}, wantType: &Ollama{}},
		{name: "openai with key", cfg: config.CompletionConfig{Provider: "openai", APIKey: "k"}, wantType: &OpenAI{}},
		{name: "openai without key", cfg: config.CompletionConfig{Provider: "openai"}, wantErr: true, wantNil: true},
		{name: "unknown", cfg: config.CompletionConfig{Provider: "bogus"}, wantErr: true, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, c)
				return
			}
			assert.IsType(t, tt.wantType, c)
		})
	}
}

func TestFunc_Adapts(t *testing.T) {
	f := Func(func(_ context.Context, m []Message) (string, error) {
		return m[0].Content + "!", nil
	})

	out, err := f.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ok"}})

	require.NoError(t, err)
	assert.Equal(t, "ok!", out)
}
