// Package chunk splits notes and chat transcripts into retrieval-sized
// chunks that preserve heading context and keep structured blocks whole.
package chunk

import (
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

// Default chunking parameters.
const (
	DefaultMinChunkChars        = 150
	DefaultMaxChunkChars        = 2000
	DefaultContextLength        = 4096
	DefaultResponseBufferTokens = 512
	DefaultCharsPerToken        = 4
)

// Kind describes the dominant content of a chunk.
type Kind string

const (
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindTable Kind = "table"
	KindList  Kind = "list"
	KindChat  Kind = "chat"
	// KindError marks a placeholder chunk for content that could not be parsed.
	KindError Kind = "error"
)

// Chunk is one retrievable unit derived from a document.
type Chunk struct {
	ID         string        `json:"id"`
	ParentID   string        `json:"parentId"`
	ParentType document.Type `json:"parentType"`

	// Content is the indexed text: optional metadata header plus body.
	Content string `json:"content"`

	// HeaderLen is the byte length of the injected metadata header.
	HeaderLen int `json:"headerLen,omitempty"`

	// CharCount counts the runes of the body, excluding the header.
	CharCount int `json:"charCount"`

	HeadingPath []string `json:"headingPath,omitempty"`
	Summary     string   `json:"summary,omitempty"`

	// Embedding is persisted separately from the chunk record.
	Embedding []float32 `json:"-"`

	ParentLastUpdatedAt int64 `json:"parentLastUpdatedAt"`
	Kind                Kind  `json:"kind"`

	// Offset is the byte offset of the body in the cleaned parent content.
	Offset int `json:"offset"`
}

// Body returns Content without the metadata header.
func (c *Chunk) Body() string {
	if c.HeaderLen <= 0 || c.HeaderLen > len(c.Content) {
		return c.Content
	}
	return c.Content[c.HeaderLen:]
}

// Options controls chunk sizing and enrichment.
type Options struct {
	MinChunkChars int
	MaxChunkChars int
	OverlapChars  int

	// IncludeHeaders prefixes each chunk with the parent's title and tags.
	IncludeHeaders bool

	// UseContextualSummaries asks the completer for a per-chunk summary.
	UseContextualSummaries bool

	ContextLength        int
	ResponseBufferTokens int
	CharsPerToken        int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		MinChunkChars:        DefaultMinChunkChars,
		MaxChunkChars:        DefaultMaxChunkChars,
		IncludeHeaders:       true,
		ContextLength:        DefaultContextLength,
		ResponseBufferTokens: DefaultResponseBufferTokens,
		CharsPerToken:        DefaultCharsPerToken,
	}
}

// OptionsFromConfig maps chunking configuration onto Options.
func OptionsFromConfig(cfg config.ChunkingConfig) Options {
	return Options{
		MinChunkChars:          cfg.MinChunkChars,
		MaxChunkChars:          cfg.MaxChunkChars,
		OverlapChars:           cfg.OverlapChars,
		IncludeHeaders:         cfg.IncludeHeaders,
		UseContextualSummaries: cfg.UseContextualSummaries,
		ContextLength:          cfg.ContextLength,
		ResponseBufferTokens:   cfg.ResponseBufferTokens,
		CharsPerToken:          cfg.CharsPerToken,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	if o.MinChunkChars < 0 {
		o.MinChunkChars = 0
	}
	if o.MinChunkChars > o.MaxChunkChars {
		o.MinChunkChars = o.MaxChunkChars
	}
	if o.OverlapChars < 0 {
		o.OverlapChars = 0
	}
	if o.ContextLength <= 0 {
		o.ContextLength = DefaultContextLength
	}
	if o.ResponseBufferTokens < 0 {
		o.ResponseBufferTokens = 0
	}
	if o.CharsPerToken <= 0 {
		o.CharsPerToken = DefaultCharsPerToken
	}
	return o
}

// Result is the output of chunking one document.
type Result struct {
	Chunks   []Chunk
	ChunkIDs []string
}

func newResult(chunks []Chunk) Result {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return Result{Chunks: chunks, ChunkIDs: ids}
}
