package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display.
// Non-structured errors are reported under the internal code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ce, ok := as(err)
	if !ok {
		ce = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ce.Message))
	if ce.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ce.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ce.Code))

	return sb.String()
}

// LogAttrs flattens an error into key-value pairs for structured logging.
// Details are emitted with a "detail_" prefix.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	ce, ok := as(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error", ce.Message,
		"error_code", ce.Code,
		"category", string(ce.Category),
		"retryable", ce.Retryable,
	}
	if ce.Cause != nil {
		attrs = append(attrs, "cause", ce.Cause.Error())
	}
	for k, v := range ce.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
