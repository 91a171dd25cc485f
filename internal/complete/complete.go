// Package complete provides chat completion clients used to generate
// contextual chunk summaries.
package complete

import (
	"context"
	"time"
)

// Defaults for completion providers.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "qwen3:0.6b"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTimeout     = 60 * time.Second
)

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message sent to a completion provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer produces a single assistant reply for a list of messages.
type Completer interface {
	// Complete returns the reply text. Implementations honor ctx
	// cancellation and map deadline overruns to a network timeout error.
	Complete(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the model identifier being used.
	ModelName() string
}

// Func adapts a function to the Completer interface.
type Func func(ctx context.Context, messages []Message) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// ModelName reports a fixed name for function-backed completers.
func (f Func) ModelName() string { return "func" }
