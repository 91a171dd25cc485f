// Package semantic finds chunks whose embeddings are most similar to a
// query embedding.
package semantic

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// Backend names.
const (
	BackendScan = "scan"
	BackendHNSW = "hnsw"
)

// Match is a chunk scored against a query.
type Match struct {
	ChunkID    string        `json:"chunkId"`
	ParentID   string        `json:"parentId"`
	ParentType document.Type `json:"parentType"`
	Score      float64       `json:"score"`
}

// Index answers similarity queries over stored embeddings.
type Index interface {
	// FindSimilar returns up to topK matches with score >= threshold,
	// best first. Ties keep ascending chunk id order.
	FindSimilar(ctx context.Context, query []float32, topK int, threshold float64) ([]Match, error)

	// Invalidate drops derived state after embeddings change.
	Invalidate()
}

// New returns the index for backend. Unknown names fall back to scan.
func New(backend string, chunks *store.Chunks, logger *slog.Logger) Index {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(backend) {
	case BackendHNSW:
		return NewHNSW(chunks, HNSWOptions{}, logger)
	default:
		return NewScan(chunks, logger)
	}
}

// Scan compares the query with every stored embedding. Cost grows
// linearly with the number of chunks.
type Scan struct {
	chunks *store.Chunks
	logger *slog.Logger
}

var _ Index = (*Scan)(nil)

// NewScan creates an exhaustive index.
func NewScan(chunks *store.Chunks, logger *slog.Logger) *Scan {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scan{chunks: chunks, logger: logger}
}

// Invalidate is a no-op; Scan keeps no derived state.
func (s *Scan) Invalidate() {}

// FindSimilar scans embeddings in ascending chunk id order.
func (s *Scan) FindSimilar(ctx context.Context, query []float32, topK int, threshold float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, cerrors.ValidationError("query embedding is empty", nil)
	}

	var matches []Match
	err := s.chunks.ForEachEmbedding(ctx, func(id string, vec []float32) error {
		score := Cosine(query, vec)
		if score < threshold {
			return nil
		}
		if m, ok := toMatch(s.logger, id, score); ok {
			matches = append(matches, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return topMatches(matches, topK), nil
}

func toMatch(logger *slog.Logger, id string, score float64) (Match, bool) {
	parsed, err := chunk.ParseID(id)
	if err != nil {
		logger.Warn("semantic_chunk_id_invalid", slog.String("chunk_id", id), slog.String("error", err.Error()))
		return Match{}, false
	}
	return Match{ChunkID: id, ParentID: parsed.ParentID, ParentType: parsed.ParentType, Score: score}, true
}

// topMatches sorts by score descending, keeping input order for ties, and
// truncates to topK.
func topMatches(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
