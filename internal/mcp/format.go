package mcp

import (
	"fmt"
	"strings"
)

// maxSnippet bounds the content shown per result in the text rendering.
const maxSnippet = 600

// FormatSearchResults renders the search output as markdown for clients
// that only read text content.
func FormatSearchResults(out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for %q", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q\n\n", out.Query)
	fmt.Fprintf(&sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		title := r.Title
		if title == "" {
			title = r.NoteID
		}
		fmt.Fprintf(&sb, "### %d. %s (score: %.2f)\n", i+1, title, r.Score)
		if r.Section != "" {
			fmt.Fprintf(&sb, "**Section:** %s\n", r.Section)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(&sb, "**Tags:** %s\n", strings.Join(r.Tags, ", "))
		}
		if r.URL != "" {
			fmt.Fprintf(&sb, "**URL:** %s\n", r.URL)
		}
		fmt.Fprintf(&sb, "**Source:** note://%s\n\n", r.NoteID)
		sb.WriteString(truncate(r.Content, maxSnippet))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func joinHeadings(path []string) string {
	return strings.Join(path, " > ")
}

// truncate cuts s to at most n runes, on a word boundary when one is near.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexAny(cut, " \n"); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
