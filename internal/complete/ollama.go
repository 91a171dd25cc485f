package complete

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// OllamaConfig configures the Ollama completer.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Ollama talks to the /api/chat endpoint of an Ollama server.
type Ollama struct {
	client *http.Client
	config OllamaConfig
}

var _ Completer = (*Ollama)(nil)

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewOllama creates an Ollama completer, applying defaults.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Ollama{client: &http.Client{}, config: cfg}
}

// ModelName returns the configured model.
func (o *Ollama) ModelName() string { return o.config.Model }

// Complete sends messages to /api/chat and returns the reply content.
func (o *Ollama) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaChatRequest{Model: o.config.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", cerrors.Timeout("completion", err)
		}
		return "", cerrors.NetworkError("failed to reach Ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", cerrors.New(cerrors.ErrCodeEmbeddingFailed, out.Error, nil)
	}
	return strings.TrimSpace(out.Message.Content), nil
}
