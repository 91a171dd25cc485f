package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/semantic"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// Ranker answers hybrid queries over the lexical and semantic channels.
type Ranker struct {
	lexical  LexicalSearcher
	semantic semantic.Index
	embedder embed.Embedder
	parents  *store.ParentIndex
	chunks   *store.Chunks
	docs     document.Source
	logger   *slog.Logger
	defaults Options
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RankerOption {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDefaults sets the options used by Search.
func WithDefaults(o Options) RankerOption {
	return func(r *Ranker) { r.defaults = o.withDefaults() }
}

// NewRanker creates a ranker. lex or sem may be nil to disable a channel;
// docs may be nil, in which case results carry no parent metadata.
func NewRanker(
	lex LexicalSearcher,
	sem semantic.Index,
	embedder embed.Embedder,
	parents *store.ParentIndex,
	chunks *store.Chunks,
	docs document.Source,
	opts ...RankerOption,
) *Ranker {
	r := &Ranker{
		lexical:  lex,
		semantic: sem,
		embedder: embedder,
		parents:  parents,
		chunks:   chunks,
		docs:     docs,
		logger:   slog.Default(),
		defaults: DefaultOptions(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Defaults returns the options Search ranks with.
func (r *Ranker) Defaults() Options { return r.defaults }

// Search ranks with the ranker's default options.
func (r *Ranker) Search(ctx context.Context, query string) ([]HybridResult, error) {
	return r.Rank(ctx, query, r.defaults)
}

// Rank runs both channels concurrently, fuses their normalized scores and
// hydrates the top results. A failing channel is logged and contributes
// nothing; only when every channel that ran fails is an error returned.
func (r *Ranker) Rank(ctx context.Context, query string, opts Options) ([]HybridResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, cerrors.New(cerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	opts = opts.withDefaults()
	start := time.Now()

	lex, sem, err := r.channels(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	fused := fuse(lex, sem, opts.BM25Weight)
	if len(fused) > opts.FinalTopK {
		fused = fused[:opts.FinalTopK]
	}

	results, err := r.hydrate(ctx, fused)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("search_complete",
		slog.Int("lexical_candidates", len(lex)),
		slog.Int("semantic_candidates", len(sem)),
		slog.Int("results", len(results)),
		slog.Float64("bm25_weight", opts.BM25Weight),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

func (r *Ranker) runLexical(opts Options) bool {
	return r.lexical != nil && r.parents != nil && opts.BM25Weight > 0
}

func (r *Ranker) runSemantic(opts Options) bool {
	return r.semantic != nil && embed.IsConfigured(r.embedder) && opts.BM25Weight < 1
}

// channels runs the enabled channels in parallel.
func (r *Ranker) channels(ctx context.Context, query string, opts Options) (lex, sem []scored, err error) {
	g, gctx := errgroup.WithContext(ctx)
	var lexErr, semErr error
	ranLex, ranSem := r.runLexical(opts), r.runSemantic(opts)

	if ranLex {
		g.Go(func() error {
			lex, lexErr = r.lexicalScores(gctx, query, opts)
			if lexErr != nil {
				r.logger.Warn("search_lexical_failed", slog.String("error", lexErr.Error()))
			}
			return nil // Don't fail the group
		})
	}
	if ranSem {
		g.Go(func() error {
			sem, semErr = r.semanticScores(gctx, query, opts)
			if semErr != nil {
				r.logger.Warn("search_semantic_failed", slog.String("error", semErr.Error()))
			}
			return nil
		})
	}

	_ = g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	lexDown := !ranLex || lexErr != nil
	semDown := !ranSem || semErr != nil
	if (ranLex || ranSem) && lexDown && semDown {
		return nil, nil, cerrors.New(cerrors.ErrCodeSearchFailed, "all search channels failed", errors.Join(lexErr, semErr))
	}
	return lex, sem, nil
}

// lexicalScores expands parent hits to their chunks, each carrying the
// parent score.
func (r *Ranker) lexicalScores(ctx context.Context, query string, opts Options) ([]scored, error) {
	hits, err := r.lexical.Search(ctx, query, opts.BM25TopKParents)
	if err != nil {
		return nil, err
	}
	var out []scored
	for _, h := range hits {
		for _, id := range r.parents.Get(h.ID) {
			parentID, parentType := parentOf(id)
			if parentID == "" {
				parentID = h.ID
			}
			out = append(out, scored{chunkID: id, parentID: parentID, parentType: parentType, score: h.Score})
		}
	}
	return out, nil
}

func (r *Ranker) semanticScores(ctx context.Context, query string, opts Options) ([]scored, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.semantic.FindSimilar(ctx, vec, opts.SemanticTopK, opts.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	out := make([]scored, len(matches))
	for i, m := range matches {
		out[i] = scored{chunkID: m.ChunkID, parentID: m.ParentID, parentType: m.ParentType, score: m.Score}
	}
	return out, nil
}

// hydrate fetches chunk payloads in one batch and each distinct parent once.
func (r *Ranker) hydrate(ctx context.Context, fused []candidate) ([]HybridResult, error) {
	if len(fused) == 0 {
		return []HybridResult{}, nil
	}

	ids := make([]string, len(fused))
	for i, c := range fused {
		ids[i] = c.chunkID
	}
	chunks, err := r.chunks.GetMany(ctx, ids)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeSearchFailed, "failed to load chunks", err)
	}

	parents := make(map[string]*document.Document)
	results := make([]HybridResult, 0, len(fused))
	for _, c := range fused {
		ch, ok := chunks[c.chunkID]
		if !ok {
			r.logger.Warn("search_chunk_missing",
				slog.String("chunk_id", c.chunkID),
				slog.String("error", cerrors.NotFound("chunk", c.chunkID).Error()))
			continue
		}

		parentID, parentType := c.parentID, c.parentType
		if ch.ParentID != "" {
			parentID, parentType = ch.ParentID, ch.ParentType
		}
		res := HybridResult{
			ChunkID:       c.chunkID,
			ParentID:      parentID,
			ParentType:    parentType,
			Content:       ch.Body(),
			Summary:       ch.Summary,
			HeadingPath:   ch.HeadingPath,
			BM25Score:     c.bm25,
			SemanticScore: c.semantic,
			HybridScore:   c.hybrid,
		}

		doc, seen := parents[parentID]
		if !seen {
			doc = r.parent(ctx, parentID)
			parents[parentID] = doc
		}
		if doc != nil {
			res.Title = doc.Title
			res.URL = doc.URL
			res.Tags = doc.Tags
		}
		results = append(results, res)
	}
	return results, nil
}

// parent returns the parent document, or nil when it cannot be read.
func (r *Ranker) parent(ctx context.Context, id string) *document.Document {
	if r.docs == nil || id == "" {
		return nil
	}
	doc, err := r.docs.Get(ctx, id)
	if err != nil {
		level := slog.LevelWarn
		if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
			level = slog.LevelDebug
		}
		r.logger.Log(ctx, level, "search_parent_unavailable",
			slog.String("parent_id", id),
			slog.String("error", err.Error()))
		return nil
	}
	return &doc
}
