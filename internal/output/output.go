// Package output formats CLI messages and search results, with optional color.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool

	title  *color.Color
	score  *color.Color
	faint  *color.Color
	good   *color.Color
	warn   *color.Color
	danger *color.Color
}

// New creates a Writer without color.
func New(out io.Writer) *Writer {
	return NewWithColor(out, false)
}

// NewWithColor creates a Writer that colors its output when useColor is set.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	w := &Writer{
		out:      out,
		useColor: useColor,
		title:    color.New(color.FgCyan, color.Bold),
		score:    color.New(color.FgGreen, color.Bold),
		faint:    color.New(color.Faint),
		good:     color.New(color.FgGreen),
		warn:     color.New(color.FgYellow),
		danger:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{w.title, w.score, w.faint, w.good, w.warn, w.danger} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return w
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.good.Sprint(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.warn.Sprint(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.danger.Sprint(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// KeyValue prints an aligned "key: value" line.
func (w *Writer) KeyValue(key string, value any) {
	_, _ = fmt.Fprintf(w.out, "   %-18s %v\n", w.faint.Sprint(key+":"), value)
}

// Result prints one ranked search hit: a heading line, a faint detail line
// and an indented snippet.
func (w *Writer) Result(rank int, heading string, score float64, detail string, snippet []string) {
	_, _ = fmt.Fprintf(w.out, "%d. %s %s\n", rank, w.title.Sprint(heading), w.score.Sprintf("(%.3f)", score))
	if detail != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.faint.Sprint(detail))
	}
	for _, line := range snippet {
		_, _ = fmt.Fprintf(w.out, "   %s\n", line)
	}
	w.Newline()
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	// Carriage return for in-place updates
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// Snippet returns the first n non-blank-trailing lines of content.
func Snippet(content string, n int) []string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(max(int(float64(current)/float64(total)*float64(width)), 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
