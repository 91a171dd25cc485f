// Package search ranks chunks by combining lexical (BM25) and semantic
// scores. Each channel is min-max normalized per query before weighting.
package search

import (
	"context"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/semantic"
)

// Default ranking parameters.
const (
	DefaultSemanticTopK    = 20
	DefaultBM25TopKParents = 10
	DefaultFinalTopK       = 10
	DefaultBM25Weight      = 0.5
)

// Options configures one ranking call.
type Options struct {
	// SemanticTopK is the number of chunks taken from the semantic channel.
	SemanticTopK int

	// BM25TopKParents is the number of parents taken from the lexical
	// channel before expansion to their chunks.
	BM25TopKParents int

	// FinalTopK is the number of results returned.
	FinalTopK int

	// BM25Weight is w in w*bm25 + (1-w)*semantic. 0 skips the lexical
	// channel and 1 skips the semantic channel.
	BM25Weight float64

	// SimilarityThreshold drops semantic matches below it before the cut.
	SimilarityThreshold float64
}

// DefaultOptions returns the default ranking parameters.
func DefaultOptions() Options {
	return Options{
		SemanticTopK:    DefaultSemanticTopK,
		BM25TopKParents: DefaultBM25TopKParents,
		FinalTopK:       DefaultFinalTopK,
		BM25Weight:      DefaultBM25Weight,
	}
}

// OptionsFromConfig maps the search and semantic sections to Options.
func OptionsFromConfig(search config.SearchConfig, sem config.SemanticConfig) Options {
	return Options{
		SemanticTopK:        search.SemanticTopK,
		BM25TopKParents:     search.BM25TopKParents,
		FinalTopK:           search.FinalTopK,
		BM25Weight:          search.BM25Weight,
		SimilarityThreshold: sem.SimilarityThreshold,
	}.withDefaults()
}

// withDefaults fills non-positive counts and clamps the weight.
func (o Options) withDefaults() Options {
	if o.SemanticTopK <= 0 {
		o.SemanticTopK = DefaultSemanticTopK
	}
	if o.BM25TopKParents <= 0 {
		o.BM25TopKParents = DefaultBM25TopKParents
	}
	if o.FinalTopK <= 0 {
		o.FinalTopK = DefaultFinalTopK
	}
	switch {
	case o.BM25Weight < 0:
		o.BM25Weight = 0
	case o.BM25Weight > 1:
		o.BM25Weight = 1
	}
	return o
}

// HybridResult is one ranked, hydrated chunk.
type HybridResult struct {
	ChunkID       string        `json:"chunkId"`
	ParentID      string        `json:"parentId"`
	ParentType    document.Type `json:"parentType"`
	Content       string        `json:"content"`
	Summary       string        `json:"summary,omitempty"`
	HeadingPath   []string      `json:"headingPath,omitempty"`
	Title         string        `json:"title,omitempty"`
	URL           string        `json:"url,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	BM25Score     float64       `json:"bm25Score"`
	SemanticScore float64       `json:"semanticScore"`
	HybridScore   float64       `json:"hybridScore"`
}

// LexicalSearcher is the lexical channel. Hits are parent ids.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]lexical.Hit, error)
}

// Compile-time checks for the production channels.
var (
	_ LexicalSearcher = (*lexical.Index)(nil)
	_ semantic.Index  = (*semantic.Scan)(nil)
)
