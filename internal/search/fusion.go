package search

import (
	"sort"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

// candidate is a chunk scored by one or both channels.
type candidate struct {
	chunkID    string
	parentID   string
	parentType document.Type
	bm25       float64 // normalized
	semantic   float64 // normalized
	hybrid     float64
}

// scored is a raw channel score for one chunk.
type scored struct {
	chunkID    string
	parentID   string
	parentType document.Type
	score      float64
}

// normalize rescales scores to [0, 1] with min-max. When every score is
// equal the result is 1 for positive scores and 0 otherwise.
func normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	if hi == lo {
		if hi > 0 {
			for i := range out {
				out[i] = 1
			}
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// fuse combines the two channels. A chunk missing from a channel scores 0
// there. Results are ordered by hybrid score, then chunk id.
func fuse(lex, sem []scored, w float64) []candidate {
	byID := make(map[string]*candidate, len(lex)+len(sem))
	get := func(s scored) *candidate {
		c, ok := byID[s.chunkID]
		if !ok {
			c = &candidate{chunkID: s.chunkID, parentID: s.parentID, parentType: s.parentType}
			byID[s.chunkID] = c
		}
		return c
	}

	for i, n := range normalize(rawScores(lex)) {
		c := get(lex[i])
		c.bm25 = max(c.bm25, n)
	}
	for i, n := range normalize(rawScores(sem)) {
		c := get(sem[i])
		c.semantic = max(c.semantic, n)
	}

	out := make([]candidate, 0, len(byID))
	for _, c := range byID {
		c.hybrid = w*c.bm25 + (1-w)*c.semantic
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].chunkID < out[j].chunkID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].hybrid > out[j].hybrid })
	return out
}

func rawScores(s []scored) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.score
	}
	return out
}

// parentOf recovers parent fields from a chunk id.
func parentOf(chunkID string) (string, document.Type) {
	id, err := chunk.ParseID(chunkID)
	if err != nil {
		return "", ""
	}
	return id.ParentID, id.ParentType
}
