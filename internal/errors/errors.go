package errors

import (
	stderrors "errors"
	"fmt"
)

// CognitoError is the structured error type for the retrieval core.
// It provides rich context for error handling, logging, and user presentation.
type CognitoError struct {
	// Code is the unique error code (e.g., "ERR_201_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the caller may retry the operation.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CognitoError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CognitoError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CognitoError.
func (e *CognitoError) Is(target error) bool {
	if t, ok := target.(*CognitoError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CognitoError) WithDetail(key, value string) *CognitoError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CognitoError) WithSuggestion(suggestion string) *CognitoError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CognitoError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CognitoError {
	return &CognitoError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CognitoError from an existing error.
// The error's message becomes the CognitoError message.
func Wrap(code string, err error) *CognitoError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel values for errors.Is comparisons by code.
var (
	ErrNotConfigured = New(ErrCodeNotConfigured, "service not configured", nil)
	ErrNotFound      = New(ErrCodeNotFound, "not found", nil)
	ErrTimeout       = New(ErrCodeNetworkTimeout, "request timed out", nil)
	ErrCorruptIndex  = New(ErrCodeCorruptIndex, "index corrupted", nil)
	ErrParseFailed   = New(ErrCodeParseFailed, "parse failed", nil)
)

// NotConfigured reports a missing embedding or completion endpoint.
func NotConfigured(service string) *CognitoError {
	return New(ErrCodeNotConfigured, service+" service is not configured", nil).
		WithDetail("service", service).
		WithSuggestion("Set the " + service + " provider and endpoint in .cognito.yaml or COGNITO_* environment variables")
}

// NotFound reports a missing chunk, parent, or key.
func NotFound(kind, id string) *CognitoError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil).
		WithDetail(kind, id)
}

// Timeout reports an outbound call that exceeded its deadline.
func Timeout(operation string, cause error) *CognitoError {
	return New(ErrCodeNetworkTimeout, operation+" timed out", cause).
		WithDetail("operation", operation)
}

// CorruptIndex reports a persisted index that could not be imported.
func CorruptIndex(name string, cause error) *CognitoError {
	return New(ErrCodeCorruptIndex, fmt.Sprintf("persisted %s index is corrupted", name), cause).
		WithDetail("index", name)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *CognitoError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a storage-related error.
func IOError(message string, cause error) *CognitoError {
	return New(ErrCodeStoreFailed, message, cause)
}

// NetworkError creates a network-related error.
func NetworkError(message string, cause error) *CognitoError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CognitoError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CognitoError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first CognitoError in err's chain.
func as(err error) (*CognitoError, bool) {
	var ce *CognitoError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains a CognitoError with Retryable set.
func IsRetryable(err error) bool {
	if ce, ok := as(err); ok {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ce, ok := as(err); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the error chain.
// Returns empty string if no CognitoError is present.
func GetCode(err error) string {
	if ce, ok := as(err); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from the error chain.
func GetCategory(err error) Category {
	if ce, ok := as(err); ok {
		return ce.Category
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}
