package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/semantic"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

type fakeLexical struct {
	hits  []lexical.Hit
	err   error
	calls atomic.Int64
}

func (f *fakeLexical) Search(_ context.Context, _ string, topK int) ([]lexical.Hit, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeSemantic struct {
	matches []semantic.Match
	err     error
	calls   atomic.Int64
}

func (f *fakeSemantic) FindSimilar(_ context.Context, _ []float32, topK int, threshold float64) ([]semantic.Match, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []semantic.Match
	for _, m := range f.matches {
		if m.Score >= threshold {
			out = append(out, m)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeSemantic) Invalidate() {}

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int   { return 2 }
func (fakeEmbedder) ModelName() string { return "fake" }
func (fakeEmbedder) Close() error      { return nil }

// countingSource counts Get calls per id.
type countingSource struct {
	document.Source
	gets map[string]int
}

func (c *countingSource) Get(ctx context.Context, id string) (document.Document, error) {
	c.gets[id]++
	return c.Source.Get(ctx, id)
}

type fixture struct {
	lex     *fakeLexical
	sem     *fakeSemantic
	chunks  *store.Chunks
	parents *store.ParentIndex
	docs    *countingSource
}

// newFixture stores three note chunks under p1 and p2 and one chat chunk
// under c1. Only p1 and p2 exist in the document source.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := kv.NewMemory()
	chunks := store.NewChunks(s)
	stored := []chunk.Chunk{
		{ID: "notechunk_p1_0", ParentID: "p1", ParentType: document.TypeNote, Content: "alpha one", HeadingPath: []string{"A"}},
		{ID: "notechunk_p1_1", ParentID: "p1", ParentType: document.TypeNote, Content: "alpha two"},
		{ID: "notechunk_p2_0", ParentID: "p2", ParentType: document.TypeNote, Content: "beta", Summary: "about beta"},
		{ID: "msgchunk_c1_t0_100_user_0", ParentID: "c1", ParentType: document.TypeChat, Content: "user: gamma"},
	}
	require.NoError(t, chunks.Put(ctx, stored))

	parents := store.NewParentIndex(s)
	parents.Set("p1", []string{"notechunk_p1_0", "notechunk_p1_1"})
	parents.Set("p2", []string{"notechunk_p2_0"})
	parents.Set("c1", []string{"msgchunk_c1_t0_100_user_0"})

	return &fixture{
		lex: &fakeLexical{hits: []lexical.Hit{{ID: "p1", Score: 4}, {ID: "p2", Score: 2}}},
		sem: &fakeSemantic{matches: []semantic.Match{
			{ChunkID: "notechunk_p2_0", ParentID: "p2", ParentType: document.TypeNote, Score: 0.9},
			{ChunkID: "notechunk_p1_0", ParentID: "p1", ParentType: document.TypeNote, Score: 0.7},
			{ChunkID: "msgchunk_c1_t0_100_user_0", ParentID: "c1", ParentType: document.TypeChat, Score: 0.5},
		}},
		chunks:  chunks,
		parents: parents,
		docs: &countingSource{
			Source: document.NewMemory(
				document.Document{ID: "p1", Title: "Alpha", URL: "https://a", Tags: []string{"x"}},
				document.Document{ID: "p2", Title: "Beta"},
			),
			gets: map[string]int{},
		},
	}
}

func (f *fixture) ranker(e embed.Embedder) *Ranker {
	return NewRanker(f.lex, f.sem, e, f.parents, f.chunks, f.docs)
}

func resultIDs(rs []HybridResult) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ChunkID
	}
	return ids
}

func TestRank_EmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "   ", DefaultOptions())

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeQueryEmpty, cerrors.GetCode(err))
	assert.Equal(t, int64(0), f.lex.calls.Load())
}

func TestRank_BlendsNormalizedScores(t *testing.T) {
	// Given: lexical hits p1=4, p2=2 and semantic scores 0.9, 0.7, 0.5
	f := newFixture(t)
	opts := DefaultOptions()
	opts.FinalTopK = 3

	// When: ranking with equal weights
	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", opts)

	// Then: p1_0 leads, the 0.5 tie is broken by chunk id
	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p1_0", "notechunk_p1_1", "notechunk_p2_0"}, resultIDs(rs))
	assert.InDelta(t, 0.75, rs[0].HybridScore, 1e-9)
	assert.InDelta(t, 1.0, rs[0].BM25Score, 1e-9)
	assert.InDelta(t, 0.5, rs[0].SemanticScore, 1e-9)
	assert.InDelta(t, 0.5, rs[1].HybridScore, 1e-9)
	assert.InDelta(t, 0.5, rs[2].HybridScore, 1e-9)
}

func TestRank_WeightOneIsLexicalOrder(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.BM25Weight = 1

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p1_0", "notechunk_p1_1", "notechunk_p2_0"}, resultIDs(rs))
	assert.Equal(t, int64(0), f.sem.calls.Load())
}

func TestRank_WeightZeroIsSemanticOrder(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.BM25Weight = 0

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p2_0", "notechunk_p1_0", "msgchunk_c1_t0_100_user_0"}, resultIDs(rs))
	assert.Equal(t, int64(0), f.lex.calls.Load())
}

func TestRank_HydratesMetadata(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.BM25Weight = 0

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "q", opts)
	require.NoError(t, err)
	require.Len(t, rs, 3)

	beta := rs[0]
	assert.Equal(t, "p2", beta.ParentID)
	assert.Equal(t, "Beta", beta.Title)
	assert.Equal(t, "beta", beta.Content)
	assert.Equal(t, "about beta", beta.Summary)

	alpha := rs[1]
	assert.Equal(t, "Alpha", alpha.Title)
	assert.Equal(t, "https://a", alpha.URL)
	assert.Equal(t, []string{"x"}, alpha.Tags)
	assert.Equal(t, []string{"A"}, alpha.HeadingPath)

	// Missing parent metadata keeps the result with empty fields
	chat := rs[2]
	assert.Equal(t, "c1", chat.ParentID)
	assert.Equal(t, document.TypeChat, chat.ParentType)
	assert.Empty(t, chat.Title)
}

func TestRank_FetchesEachParentOnce(t *testing.T) {
	f := newFixture(t)

	_, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, 1, f.docs.gets["p1"])
	assert.Equal(t, 1, f.docs.gets["p2"])
}

func TestRank_DropsChunksWithoutPayload(t *testing.T) {
	// Given: a chunk listed in the parent index but missing from the store
	f := newFixture(t)
	require.NoError(t, f.chunks.Delete(context.Background(), []string{"notechunk_p1_1"}))
	opts := DefaultOptions()
	opts.BM25Weight = 1

	// When: ranking
	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", opts)

	// Then: the result is dropped
	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p1_0", "notechunk_p2_0"}, resultIDs(rs))
}

func TestRank_SemanticFailureKeepsLexical(t *testing.T) {
	f := newFixture(t)

	rs, err := f.ranker(fakeEmbedder{err: cerrors.Timeout("embedding", nil)}).
		Rank(context.Background(), "alpha", DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p1_0", "notechunk_p1_1", "notechunk_p2_0"}, resultIDs(rs))
	for _, r := range rs {
		assert.Zero(t, r.SemanticScore)
	}
}

func TestRank_LexicalFailureKeepsSemantic(t *testing.T) {
	f := newFixture(t)
	f.lex.err = errors.New("index unavailable")

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, "notechunk_p2_0", rs[0].ChunkID)
}

func TestRank_AllChannelsFail(t *testing.T) {
	f := newFixture(t)
	f.lex.err = errors.New("lexical down")
	f.sem.err = errors.New("semantic down")

	_, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "alpha", DefaultOptions())

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeSearchFailed, cerrors.GetCode(err))
}

func TestRank_UnconfiguredEmbedderSkipsSemantic(t *testing.T) {
	f := newFixture(t)

	rs, err := f.ranker(embed.Unconfigured{}).Rank(context.Background(), "alpha", DefaultOptions())

	require.NoError(t, err)
	assert.Len(t, rs, 3)
	assert.Equal(t, int64(0), f.sem.calls.Load())
}

func TestRank_ThresholdAppliesToSemantic(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.BM25Weight = 0
	opts.SimilarityThreshold = 0.8

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "q", opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"notechunk_p2_0"}, resultIDs(rs))
}

func TestRank_NoCandidates(t *testing.T) {
	f := newFixture(t)
	f.lex.hits = nil
	f.sem.matches = nil

	rs, err := f.ranker(fakeEmbedder{}).Rank(context.Background(), "nothing", DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestRank_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ranker(fakeEmbedder{}).Rank(ctx, "alpha", DefaultOptions())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, []float64{}},
		{"range", []float64{2, 4, 3}, []float64{0, 1, 0.5}},
		{"all equal positive", []float64{3, 3}, []float64{1, 1}},
		{"all equal zero", []float64{0, 0}, []float64{0, 0}},
		{"all equal negative", []float64{-1}, []float64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{BM25Weight: 1.5}.withDefaults()

	assert.Equal(t, DefaultSemanticTopK, o.SemanticTopK)
	assert.Equal(t, DefaultBM25TopKParents, o.BM25TopKParents)
	assert.Equal(t, DefaultFinalTopK, o.FinalTopK)
	assert.Equal(t, 1.0, o.BM25Weight)
	assert.Equal(t, 0.0, Options{BM25Weight: -2}.withDefaults().BM25Weight)
}
