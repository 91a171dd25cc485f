package chunk

import (
	"context"
	"log/slog"
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/complete"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

// Chunker turns documents into chunks. It is safe for concurrent use.
type Chunker struct {
	opts      Options
	completer complete.Completer
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithCompleter sets the completer used for contextual summaries.
func WithCompleter(c complete.Completer) Option {
	return func(ch *Chunker) { ch.completer = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ch *Chunker) { ch.logger = l }
}

// New creates a Chunker with the given options.
func New(opts Options, options ...Option) *Chunker {
	c := &Chunker{opts: opts.withDefaults(), logger: slog.Default()}
	for _, o := range options {
		o(c)
	}
	return c
}

// Options returns the effective options.
func (c *Chunker) Options() Options { return c.opts }

// Chunk splits doc into chunks. The output depends only on the document and
// the options, apart from summaries produced by the completer. Parse
// failures are logged and produce a single error chunk rather than an error.
func (c *Chunker) Chunk(ctx context.Context, doc document.Document) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var chunks []Chunk
	var source string
	if doc.Type == document.TypeChat && len(doc.Turns) > 0 {
		chunks = c.chunkChat(doc)
		source = document.RenderTurns(doc.Turns)
	} else {
		body, ok := c.prepareBody(doc)
		if !ok {
			return newResult([]Chunk{c.errorChunk(doc)}), nil
		}
		source = body
		chunks = c.buildNoteChunks(doc, c.chunkNote(body))
	}

	if c.opts.UseContextualSummaries && c.completer != nil && len(chunks) > 0 {
		c.summarize(ctx, doc, source, chunks)
	}
	return newResult(chunks), nil
}

// prepareBody returns the text to chunk for a note, flattening JSON.
func (c *Chunker) prepareBody(doc document.Document) (string, bool) {
	if doc.ContentType != document.ContentJSON {
		return stripComments(doc.Content), true
	}
	flat, err := flattenJSON(doc.Content)
	if err != nil {
		c.logger.Warn("chunk_json_parse_failed",
			slog.String("parent_id", doc.ID),
			slog.String("error", err.Error()))
		return "", false
	}
	return flat, true
}

func stripComments(s string) string {
	return commentPattern.ReplaceAllString(s, "")
}

// header returns the metadata block prepended to every chunk.
func (c *Chunker) header(doc document.Document) string {
	if !c.opts.IncludeHeaders {
		return ""
	}
	var lines []string
	if t := strings.TrimSpace(doc.Title); t != "" {
		lines = append(lines, "Title: "+t)
	}
	if len(doc.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(doc.Tags, ", "))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n\n"
}

func (c *Chunker) newChunk(doc document.Document, id, header string, p piece) Chunk {
	return Chunk{
		ID:                  id,
		ParentID:            doc.ID,
		ParentType:          doc.Type,
		Content:             header + p.text,
		HeaderLen:           len(header),
		CharCount:           runeLen(p.text),
		HeadingPath:         p.path,
		ParentLastUpdatedAt: doc.LastUpdatedAt,
		Kind:                p.kind,
		Offset:              p.offset,
	}
}

func (c *Chunker) buildNoteChunks(doc document.Document, pieces []piece) []Chunk {
	header := c.header(doc)
	chunks := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, c.newChunk(doc, NoteChunkID(doc.ID, i), header, p))
	}
	return chunks
}

// errorChunk stands in for a document whose content could not be parsed.
func (c *Chunker) errorChunk(doc document.Document) Chunk {
	text := "[unparseable " + string(doc.ContentType) + " content in " + doc.ID + "]"
	return c.newChunk(doc, NoteChunkID(doc.ID, 0), c.header(doc), piece{text: text, kind: KindError})
}
