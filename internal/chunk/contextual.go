package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/complete"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

const summarySystemPrompt = "You write short retrieval context for excerpts of a user's notes and chats."

// summaryPromptTemplate receives the title, preceding context, the chunk
// and the following context.
const summaryPromptTemplate = `Document: %s

Preceding context:
%s

Excerpt:
%s

Following context:
%s

Instructions:
- Write 1-2 sentences situating the excerpt within the document
- Mention the topic the excerpt covers
- Output ONLY the context, no preamble`

// summaryWindow returns the number of characters of surrounding context
// available on each side of a chunk of chunkLen characters.
func (o Options) summaryWindow(chunkLen int) int {
	budget := (o.ContextLength-o.ResponseBufferTokens)*o.CharsPerToken - chunkLen
	if budget <= 0 {
		return 0
	}
	return budget / 2
}

// summarize fills Summary for each chunk. Failures are logged and leave
// the summary empty.
func (c *Chunker) summarize(ctx context.Context, doc document.Document, source string, chunks []Chunk) {
	for i := range chunks {
		if ctx.Err() != nil {
			return
		}
		ch := &chunks[i]
		if ch.Kind == KindError {
			continue
		}
		body := ch.Body()
		before, after := contextAround(source, ch.Offset, len(body), c.opts.summaryWindow(ch.CharCount))

		prompt := fmt.Sprintf(summaryPromptTemplate, titleOrID(doc), before, body, after)
		summary, err := c.completer.Complete(ctx, []complete.Message{
			{Role: complete.RoleSystem, Content: summarySystemPrompt},
			{Role: complete.RoleUser, Content: prompt},
		})
		if err != nil {
			c.logger.Warn("chunk_summary_failed",
				slog.String("chunk_id", ch.ID),
				slog.String("error", err.Error()))
			continue
		}
		ch.Summary = strings.TrimSpace(summary)
	}
}

// contextAround returns up to window runes of source on each side of the
// span [offset, offset+length). The preceding side keeps its tail and the
// following side keeps its head.
func contextAround(source string, offset, length, window int) (string, string) {
	if window <= 0 {
		return "", ""
	}
	start := clampRuneStart(source, offset)
	end := clampRuneStart(source, offset+length)
	return tailTrunc(source[:start], window), headTrunc(source[end:], window)
}

func clampRuneStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func titleOrID(doc document.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.ID
}
