package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes an index for `cognito status`.
type StatusInfo struct {
	Root        string `json:"root"`
	DataDir     string `json:"data_dir"`
	Storage     string `json:"storage"`
	StorageSize int64  `json:"storage_size"`

	Parents  int `json:"parents"`
	Chunks   int `json:"chunks"`
	Embedded int `json:"embedded"`

	EmbedderModel      string `json:"embedder_model"`
	EmbedderDimensions int    `json:"embedder_dimensions"`

	LexicalRecords   int       `json:"lexical_records"`
	LexicalTerms     int       `json:"lexical_terms"`
	LexicalChanges   int       `json:"lexical_changes"`
	LastConsolidated time.Time `json:"last_consolidated"`
	Consolidations   int       `json:"consolidations"`
	Issues           int       `json:"issues"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	w := r.out
	_, _ = fmt.Fprintf(w, "%s\n\n", r.styles.Header.Render("Index status: "+info.Root))

	_, _ = fmt.Fprintf(w, "  Documents:    %d\n", info.Parents)
	_, _ = fmt.Fprintf(w, "  Chunks:       %d\n", info.Chunks)
	_, _ = fmt.Fprintf(w, "  Embedded:     %s\n", r.coverage(info.Embedded, info.Chunks))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "  Storage:")
	_, _ = fmt.Fprintf(w, "    Backend:    %s\n", info.Storage)
	if info.DataDir != "" {
		_, _ = fmt.Fprintf(w, "    Location:   %s\n", info.DataDir)
	}
	if info.StorageSize > 0 {
		_, _ = fmt.Fprintf(w, "    Size:       %s\n", FormatBytes(info.StorageSize))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "  Embeddings:")
	if info.EmbedderDimensions > 0 {
		_, _ = fmt.Fprintf(w, "    Model:      %s (%d dims)\n", info.EmbedderModel, info.EmbedderDimensions)
	} else {
		_, _ = fmt.Fprintf(w, "    Model:      %s\n", r.styles.Warning.Render("not configured"))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "  Lexical index:")
	_, _ = fmt.Fprintf(w, "    Records:    %d (%d terms)\n", info.LexicalRecords, info.LexicalTerms)
	_, _ = fmt.Fprintf(w, "    Unmerged:   %d changes\n", info.LexicalChanges)
	if !info.LastConsolidated.IsZero() {
		_, _ = fmt.Fprintf(w, "    Merged:     %s\n", formatTime(info.LastConsolidated))
	}
	_, _ = fmt.Fprintln(w)

	if info.Issues > 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", r.styles.Error.Render(fmt.Sprintf("%d inconsistencies, run `cognito status --repair`", info.Issues)))
	} else {
		_, _ = fmt.Fprintf(w, "  %s\n", r.styles.Success.Render("Consistent"))
	}
	return nil
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) coverage(embedded, chunks int) string {
	if chunks == 0 {
		return "0"
	}
	s := fmt.Sprintf("%d (%.0f%%)", embedded, 100*float64(embedded)/float64(chunks))
	if embedded < chunks {
		return r.styles.Warning.Render(s)
	}
	return r.styles.Success.Render(s)
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
