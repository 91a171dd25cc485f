package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

type embedFailure struct {
	chunkID string
	err     error
}

// embedText is the text sent to the embedder for a chunk.
func embedText(c *chunk.Chunk) string {
	if c.Summary != "" {
		return c.Summary + "\n\n" + c.Content
	}
	return c.Content
}

// embedChunks fills Embedding on chunks in place, batch by batch with at most
// Concurrency batches in flight. A failed batch falls back to per-chunk
// requests; chunks that still fail are left without a vector and reported.
// Without a configured embedder chunks are stored unembedded.
func (m *Manager) embedChunks(ctx context.Context, chunks []chunk.Chunk) (int, []embedFailure) {
	if len(chunks) == 0 || !embed.IsConfigured(m.cfg.Embedder) {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		failures []embedFailure
	)
	fail := func(id string, err error) {
		mu.Lock()
		failures = append(failures, embedFailure{chunkID: id, err: err})
		mu.Unlock()
		m.logger.Warn("chunk_embedding_failed",
			slog.String("chunk_id", id),
			slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for start := 0; start < len(chunks); start += m.cfg.BatchSize {
		batch := chunks[start:min(start+m.cfg.BatchSize, len(chunks))]
		g.Go(func() error {
			m.embedBatch(gctx, batch, fail)
			return nil
		})
	}
	_ = g.Wait()

	embedded := 0
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			embedded++
		}
	}
	return embedded, failures
}

func (m *Manager) embedBatch(ctx context.Context, batch []chunk.Chunk, fail func(string, error)) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = embedText(&batch[i])
	}

	vecs, err := m.cfg.Embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) != len(batch) {
		err = cerrors.New(cerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding service returned %d vectors for %d inputs", len(vecs), len(batch)), nil)
	}
	reported := make([]bool, len(batch))
	if err != nil {
		if cerrors.HasCode(err, cerrors.ErrCodeNotConfigured) {
			for i := range batch {
				fail(batch[i].ID, err)
			}
			return
		}
		m.logger.Debug("embedding_batch_failed",
			slog.Int("size", len(batch)),
			slog.String("error", err.Error()))
		vecs = make([][]float32, len(batch))
		for i := range batch {
			v, err := m.cfg.Embedder.Embed(ctx, texts[i])
			if err != nil {
				fail(batch[i].ID, err)
				reported[i] = true
				continue
			}
			vecs[i] = v
		}
	}

	dims := m.cfg.Embedder.Dimensions()
	for i, v := range vecs {
		switch {
		case reported[i]:
		case len(v) == 0:
			fail(batch[i].ID, cerrors.New(cerrors.ErrCodeEmbeddingFailed, "embedding service returned an empty vector", nil))
		case dims > 0 && len(v) != dims:
			fail(batch[i].ID, cerrors.New(cerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("embedding has %d dimensions, expected %d", len(v), dims), nil))
		default:
			batch[i].Embedding = v
		}
	}
}
