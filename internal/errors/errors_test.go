package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Error wrapping preserves original error
func TestCognitoError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := stderrors.New("original error")

	// When: wrapping with CognitoError
	ce := New(ErrCodeStoreFailed, "write failed", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, ce)
	assert.Equal(t, originalErr, stderrors.Unwrap(ce))
	assert.True(t, stderrors.Is(ce, originalErr))
}

func TestCognitoError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config error", ErrCodeConfigNotFound, "config file not found", "[ERR_101_CONFIG_NOT_FOUND] config file not found"},
		{"not found", ErrCodeNotFound, "chunk not found", "[ERR_201_NOT_FOUND] chunk not found"},
		{"network error", ErrCodeNetworkTimeout, "request timed out", "[ERR_301_NETWORK_TIMEOUT] request timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestCognitoError_Is_MatchesByCode(t *testing.T) {
	// Given: an error built by a helper and wrapped with fmt
	err := fmt.Errorf("embedding chunk: %w", Timeout("embed", context.DeadlineExceeded))

	// Then: it matches the sentinel by code through the chain
	assert.True(t, stderrors.Is(err, ErrTimeout))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestCognitoError_CategoryAndSeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
		wantSeverity Severity
		retryable    bool
	}{
		{ErrCodeNotConfigured, CategoryConfig, SeverityError, false},
		{ErrCodeNotFound, CategoryIO, SeverityWarning, false},
		{ErrCodeCorruptIndex, CategoryIO, SeverityWarning, false},
		{ErrCodeLocked, CategoryIO, SeverityFatal, false},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNetworkUnavailable, CategoryNetwork, SeverityWarning, true},
		{ErrCodeParseFailed, CategoryValidation, SeverityWarning, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestNotConfigured_CarriesServiceDetail(t *testing.T) {
	err := NotConfigured("embedding")

	assert.Equal(t, ErrCodeNotConfigured, err.Code)
	assert.Equal(t, "embedding", err.Details["service"])
	assert.NotEmpty(t, err.Suggestion)
	assert.True(t, stderrors.Is(err, ErrNotConfigured))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestGetCode_FindsWrappedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("chunk", "notechunk_a_0"))

	assert.Equal(t, ErrCodeNotFound, GetCode(err))
	assert.Equal(t, CategoryIO, GetCategory(err))
	assert.True(t, HasCode(err, ErrCodeNotFound))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	err := NotConfigured("completion")

	out := FormatForCLI(err)

	assert.Contains(t, out, "completion service is not configured")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, ErrCodeNotConfigured)
	assert.Contains(t, FormatForCLI(stderrors.New("boom")), ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestLogAttrs_FlattensDetails(t *testing.T) {
	err := NotFound("parent", "doc-1")

	attrs := LogAttrs(err)

	assert.Contains(t, attrs, "detail_parent")
	assert.Contains(t, attrs, "doc-1")
	assert.Equal(t, []any{"error", "plain"}, LogAttrs(stderrors.New("plain")))
}

func TestRetry_RetriesOnlyRetryableErrors(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	t.Run("retryable succeeds eventually", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return Timeout("embed", nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), cfg, func() error {
			calls++
			return NotConfigured("embedding")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts wrap last error", func(t *testing.T) {
		calls := 0
		_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, NetworkError("down", nil)
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)
		assert.Contains(t, err.Error(), "failed after 3 retries")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, cfg, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
