package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"empty query", cerrors.New(cerrors.ErrCodeQueryEmpty, "query is empty", nil), ErrCodeInvalidParams},
		{"not found", cerrors.NotFound("chunk", "x"), ErrCodeNotFound},
		{"embedding", cerrors.New(cerrors.ErrCodeEmbeddingFailed, "boom", nil), ErrCodeEmbeddingFailed},
		{"not configured", cerrors.NotConfigured("embedding"), ErrCodeEmbeddingFailed},
		{"locked", cerrors.New(cerrors.ErrCodeLocked, "locked", nil), ErrCodeIndexUnavailable},
		{"network category", cerrors.NetworkError("down", nil), ErrCodeTimeout},
		{"wrapped", fmt.Errorf("outer: %w", cerrors.ValidationError("bad", nil)), ErrCodeInvalidParams},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"unknown", errors.New("x"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_NilAndPassthrough(t *testing.T) {
	assert.Nil(t, MapError(nil))

	orig := NewInvalidParamsError("nope")
	assert.Same(t, orig, MapError(fmt.Errorf("wrap: %w", orig)))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := cerrors.NotConfigured("embedding")

	got := MapError(err)

	assert.Contains(t, got.Message, "embedding service is not configured")
	assert.Contains(t, got.Message, "Set the embedding provider")
}

func TestMCPError_Error(t *testing.T) {
	assert.Equal(t, "MCP error -32602: bad", NewInvalidParamsError("bad").Error())
}
