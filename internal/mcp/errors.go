// Package mcp exposes the retrieval core to AI clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// MCP error codes. The -320xx range is reserved for servers by JSON-RPC.
const (
	ErrCodeIndexUnavailable = -32001
	ErrCodeEmbeddingFailed  = -32002
	ErrCodeTimeout          = -32003
	ErrCodeNotFound         = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol error with a code and a client-facing message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts core errors to MCP errors. Messages carry the core
// suggestion when there is one.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var ce *cerrors.CognitoError
	if errors.As(err, &ce) {
		return mapCognitoError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewNotFoundError creates an error for an unknown note or chunk.
func NewNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeNotFound, Message: fmt.Sprintf("Resource '%s' not found.", uri)}
}

func mapCognitoError(ce *cerrors.CognitoError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = ce.Message + ". " + ce.Suggestion
	}

	switch ce.Code {
	case cerrors.ErrCodeQueryEmpty, cerrors.ErrCodeInvalidInput:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case cerrors.ErrCodeNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	case cerrors.ErrCodeEmbeddingFailed, cerrors.ErrCodeDimensionMismatch, cerrors.ErrCodeNotConfigured:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case cerrors.ErrCodeCorruptIndex, cerrors.ErrCodeLocked:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	}

	switch ce.Category {
	case cerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case cerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
