package semantic

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// HNSWOptions tunes the approximate backend.
type HNSWOptions struct {
	// M is the maximum number of neighbors per node (default 16).
	M int
	// EfSearch is the search candidate list size (default 20).
	EfSearch int
	// Oversample multiplies topK when collecting candidates (default 4).
	Oversample int
}

// HNSW answers queries from an in-memory graph built lazily from the
// stored embeddings. Candidates are re-scored with exact cosine similarity
// so threshold and ordering rules match Scan. Vectors whose dimension
// differs from the majority, or with zero norm, are left out of the graph.
type HNSW struct {
	chunks *store.Chunks
	opts   HNSWOptions
	logger *slog.Logger

	mu    sync.Mutex
	graph *hnsw.Graph[uint64]
	ids   []string    // graph key -> chunk id
	vecs  [][]float32 // graph key -> raw vector
	dims  int
	stale bool
}

var _ Index = (*HNSW)(nil)

// NewHNSW creates an approximate index.
func NewHNSW(chunks *store.Chunks, opts HNSWOptions, logger *slog.Logger) *HNSW {
	if opts.M <= 0 {
		opts.M = 16
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = 20
	}
	if opts.Oversample <= 0 {
		opts.Oversample = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HNSW{chunks: chunks, opts: opts, logger: logger, stale: true}
}

// Invalidate forces a graph rebuild on the next query.
func (h *HNSW) Invalidate() {
	h.mu.Lock()
	h.stale = true
	h.mu.Unlock()
}

func (h *HNSW) buildLocked(ctx context.Context) error {
	var ids []string
	var vecs [][]float32
	dimCount := make(map[int]int)
	err := h.chunks.ForEachEmbedding(ctx, func(id string, vec []float32) error {
		ids = append(ids, id)
		vecs = append(vecs, vec)
		dimCount[len(vec)]++
		return nil
	})
	if err != nil {
		return err
	}

	dims, best := 0, 0
	for d, n := range dimCount {
		if d > 0 && (n > best || (n == best && d < dims)) {
			dims, best = d, n
		}
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = h.opts.M
	graph.EfSearch = h.opts.EfSearch
	graph.Ml = 0.25

	h.ids = h.ids[:0]
	h.vecs = h.vecs[:0]
	skipped := 0
	for i, vec := range vecs {
		if len(vec) != dims || Cosine(vec, vec) == 0 {
			skipped++
			continue
		}
		unit := make([]float32, len(vec))
		copy(unit, vec)
		normalize(unit)
		key := uint64(len(h.ids))
		graph.Add(hnsw.MakeNode(key, unit))
		h.ids = append(h.ids, ids[i])
		h.vecs = append(h.vecs, vec)
	}

	h.graph = graph
	h.dims = dims
	h.stale = false
	h.logger.Debug("semantic_graph_built",
		slog.Int("nodes", len(h.ids)),
		slog.Int("skipped", skipped),
		slog.Int("dims", dims))
	return nil
}

// FindSimilar searches the graph, building it first when stale.
func (h *HNSW) FindSimilar(ctx context.Context, query []float32, topK int, threshold float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, cerrors.ValidationError("query embedding is empty", nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stale || h.graph == nil {
		if err := h.buildLocked(ctx); err != nil {
			return nil, err
		}
	}
	if h.graph.Len() == 0 || len(query) != h.dims {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)
	nodes := h.graph.Search(q, topK*h.opts.Oversample)

	// Sort candidates by key so ties keep ascending chunk id order.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	matches := make([]Match, 0, len(nodes))
	for _, node := range nodes {
		if int(node.Key) >= len(h.ids) {
			continue
		}
		score := Cosine(query, h.vecs[node.Key])
		if score < threshold {
			continue
		}
		if m, ok := toMatch(h.logger, h.ids[node.Key], score); ok {
			matches = append(matches, m)
		}
	}
	return topMatches(matches, topK), nil
}
