package complete

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// OpenAIConfig configures the OpenAI-compatible completer.
type OpenAIConfig struct {
	// Endpoint overrides the API base URL for compatible servers.
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// OpenAI completes through any OpenAI-compatible chat API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ Completer = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI completer. An API key is required unless a
// custom endpoint is configured.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, cerrors.NotConfigured("completion").
			WithSuggestion("Set OPENAI_API_KEY or completion.endpoint")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// ModelName returns the configured model.
func (o *OpenAI) ModelName() string { return o.model }

// Complete sends a chat completion request and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{Model: o.model}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", cerrors.Timeout("completion", err)
		}
		return "", cerrors.NetworkError("completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", cerrors.New(cerrors.ErrCodeEmbeddingFailed, "completion returned no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
