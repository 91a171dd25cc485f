package mcp

import (
	"time"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
)

// Limits of the search tool.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// SearchInput is the input schema of the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
	// Weight is a pointer so an explicit 0 (semantic only) is distinguishable from unset.
	LexicalWeight *float64 `json:"lexical_weight,omitempty" jsonschema:"weight of keyword matching between 0 and 1; 0 is semantic only, 1 is keyword only"`
}

// SearchOutput is the output schema of the search tool.
type SearchOutput struct {
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []SearchResultOutput `json:"results"`
}

// SearchResultOutput is one ranked chunk.
type SearchResultOutput struct {
	ChunkID       string   `json:"chunk_id" jsonschema:"chunk identifier, readable as chunk://<id>"`
	NoteID        string   `json:"note_id" jsonschema:"parent note or chat identifier, readable as note://<id>"`
	Type          string   `json:"type" jsonschema:"note or chat"`
	Title         string   `json:"title,omitempty"`
	URL           string   `json:"url,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Section       string   `json:"section,omitempty" jsonschema:"heading path of the chunk inside its note"`
	Content       string   `json:"content"`
	Score         float64  `json:"score" jsonschema:"hybrid relevance score between 0 and 1"`
	LexicalScore  float64  `json:"lexical_score"`
	SemanticScore float64  `json:"semantic_score"`
}

// IndexStatusInput is the (empty) input schema of the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema of the index_status tool.
type IndexStatusOutput struct {
	Ready      bool          `json:"ready" jsonschema:"true when at least one note is indexed"`
	Notes      int           `json:"notes"`
	Chunks     int           `json:"chunks"`
	Embedded   int           `json:"embedded"`
	Embeddings EmbeddingInfo `json:"embeddings"`
	Lexical    LexicalInfo   `json:"lexical"`
	Issues     int           `json:"issues" jsonschema:"cross-store inconsistencies; nonzero means run cognito status --repair"`
}

// EmbeddingInfo tells clients whether semantic matching is active.
type EmbeddingInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	// SemanticSearch is false when no embedding endpoint is configured and
	// search is keyword-only.
	SemanticSearch bool `json:"semantic_search"`
}

// LexicalInfo describes the keyword index.
type LexicalInfo struct {
	Records          int    `json:"records"`
	Terms            int    `json:"terms"`
	LastConsolidated string `json:"last_consolidated,omitempty"`
}

// clampLimit applies the default and bounds of the search tool.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func toResultOutput(r search.HybridResult) SearchResultOutput {
	out := SearchResultOutput{
		ChunkID:       r.ChunkID,
		NoteID:        r.ParentID,
		Type:          string(r.ParentType),
		Title:         r.Title,
		URL:           r.URL,
		Tags:          r.Tags,
		Content:       r.Content,
		Score:         r.HybridScore,
		LexicalScore:  r.BM25Score,
		SemanticScore: r.SemanticScore,
	}
	if len(r.HeadingPath) > 0 {
		out.Section = joinHeadings(r.HeadingPath)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
