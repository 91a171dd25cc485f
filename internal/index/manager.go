// Package index keeps chunks, embeddings, the parent index and the lexical
// index consistent with a document source, by full rebuild or incremental
// update.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/semantic"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// Embedding fan-out defaults.
const (
	DefaultBatchSize   = 16
	DefaultConcurrency = 4
)

// Config contains the collaborators of a Manager.
type Config struct {
	Source   document.Source
	Chunker  *chunk.Chunker
	Embedder embed.Embedder
	Chunks   *store.Chunks
	Parents  *store.ParentIndex
	Lexical  *lexical.Index

	// Semantic is invalidated after embeddings change (optional).
	Semantic semantic.Index

	// Events receives progress notifications (optional).
	Events events.Sink

	Logger *slog.Logger

	// BatchSize is the number of chunks per embedding request.
	BatchSize int

	// Concurrency bounds the embedding requests in flight.
	Concurrency int
}

// Manager runs index lifecycle operations. Operations are serialized.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	mu     sync.Mutex
}

// NewManager validates cfg and installs the lexical loader.
func NewManager(cfg Config) (*Manager, error) {
	switch {
	case cfg.Source == nil:
		return nil, cerrors.InternalError("index manager requires a document source", nil)
	case cfg.Chunker == nil:
		return nil, cerrors.InternalError("index manager requires a chunker", nil)
	case cfg.Chunks == nil || cfg.Parents == nil:
		return nil, cerrors.InternalError("index manager requires chunk storage", nil)
	case cfg.Lexical == nil:
		return nil, cerrors.InternalError("index manager requires a lexical index", nil)
	}
	if cfg.Embedder == nil {
		cfg.Embedder = embed.Unconfigured{}
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{cfg: cfg, logger: logger}
	if !embed.IsConfigured(cfg.Embedder) {
		logger.Info("embeddings_not_configured", slog.String("effect", "chunks are indexed lexically only"))
	}
	cfg.Lexical.SetLoader(m.LexicalRecords)
	return m, nil
}

// DocState is the outcome of comparing a document with its indexed chunks.
type DocState int

const (
	StateUnchanged DocState = iota
	StateNew
	StateModified
	StateDeleted
)

// String returns the state name.
func (s DocState) String() string {
	switch s {
	case StateUnchanged:
		return "unchanged"
	case StateNew:
		return "new"
	case StateModified:
		return "modified"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Stats summarizes one lifecycle operation.
type Stats struct {
	Documents     int           `json:"documents"`
	Chunks        int           `json:"chunks"`
	Embedded      int           `json:"embedded"`
	EmbedFailures int           `json:"embedFailures"`
	Failed        int           `json:"failed"`
	New           int           `json:"new"`
	Modified      int           `json:"modified"`
	Unchanged     int           `json:"unchanged"`
	Deleted       int           `json:"deleted"`
	Duration      time.Duration `json:"duration"`
}

func (s *Stats) count(state DocState) {
	switch state {
	case StateNew:
		s.New++
	case StateModified:
		s.Modified++
	case StateUnchanged:
		s.Unchanged++
	case StateDeleted:
		s.Deleted++
	}
}

// FullRebuild discards every chunk, embedding and the parent index, then
// re-chunks and re-embeds every document and rebuilds the lexical index.
// Per-document failures are reported as events; only source enumeration,
// storage and lexical rebuild failures are returned. A cancelled context
// stops between documents and the work done so far is persisted.
func (m *Manager) FullRebuild(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	emit := events.NewEmitter(m.cfg.Events)
	var stats Stats

	docs, err := m.cfg.Source.List(ctx)
	if err != nil {
		emit.Fail("", err)
		return stats, cerrors.Wrap(cerrors.ErrCodeIndexFailed, fmt.Errorf("failed to list documents: %w", err))
	}
	total := len(docs)
	emit.Start(total)
	m.logger.Info("full_rebuild_started",
		slog.String("run_id", emit.RunID()),
		slog.Int("documents", total))

	if err := m.cfg.Chunks.Clear(ctx); err != nil {
		emit.Fail("", err)
		return stats, err
	}
	m.cfg.Parents.Reset()
	if err := m.cfg.Parents.Delete(ctx); err != nil {
		emit.Fail("", err)
		return stats, err
	}

	var cancelled error
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		if err := m.indexDocLocked(ctx, doc, emit, &stats, false); err != nil {
			emit.Fail(doc.ID, err)
			return stats, err
		}
		stats.Documents++
		emit.Progress(i+1, total, doc.ID)
	}

	if err := m.finishLocked(ctx, emit); err != nil {
		return stats, err
	}
	if err := m.cfg.Lexical.RebuildAll(context.WithoutCancel(ctx)); err != nil {
		emit.Fail("", err)
		return stats, err
	}

	stats.New = stats.Documents - stats.Failed
	stats.Duration = time.Since(start)
	emit.End(stats.Documents, total)
	m.logger.Info("full_rebuild_finished",
		slog.String("run_id", emit.RunID()),
		slog.Int("documents", stats.Documents),
		slog.Int("chunks", stats.Chunks),
		slog.Int("embedded", stats.Embedded),
		slog.Int("embed_failures", stats.EmbedFailures),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, cancelled
}

// IncrementalUpdate prunes parents whose documents are gone and re-indexes
// documents that are new or whose LastUpdatedAt differs from the stamp on
// their first stored chunk. The parent index is persisted once at the end.
func (m *Manager) IncrementalUpdate(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	emit := events.NewEmitter(m.cfg.Events)
	var stats Stats

	if err := m.cfg.Parents.Reload(ctx); err != nil {
		emit.Fail("", err)
		return stats, err
	}
	docs, err := m.cfg.Source.List(ctx)
	if err != nil {
		emit.Fail("", err)
		return stats, cerrors.Wrap(cerrors.ErrCodeIndexFailed, fmt.Errorf("failed to list documents: %w", err))
	}
	total := len(docs)
	emit.Start(total)

	live := make(map[string]bool, len(docs))
	for _, d := range docs {
		live[d.ID] = true
	}
	for _, parent := range m.cfg.Parents.Parents() {
		if live[parent] {
			continue
		}
		if err := m.removeLocked(ctx, parent); err != nil {
			emit.Fail(parent, err)
			return stats, err
		}
		stats.count(StateDeleted)
	}
	for _, parent := range m.cfg.Parents.EmptyParents() {
		if !live[parent] {
			m.cfg.Parents.Remove(parent)
		}
	}

	var cancelled error
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		state, err := m.stateLocked(ctx, doc)
		if err != nil {
			emit.Fail(doc.ID, err)
			return stats, err
		}
		stats.count(state)
		stats.Documents++

		if state == StateUnchanged {
			// Cheap repair for a lexical index that lost this parent.
			if m.cfg.Parents.Has(doc.ID) && !m.cfg.Lexical.Has(doc.ID) {
				if err := m.addLexicalLocked(ctx, doc); err != nil {
					emit.ItemFailed(doc.ID, err)
				}
			}
		} else {
			if err := m.indexDocLocked(ctx, doc, emit, &stats, true); err != nil {
				emit.Fail(doc.ID, err)
				return stats, err
			}
		}
		emit.Progress(i+1, total, doc.ID)
	}

	if err := m.finishLocked(ctx, emit); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	emit.End(stats.Documents, total)
	m.logger.Info("incremental_update_finished",
		slog.String("run_id", emit.RunID()),
		slog.Int("new", stats.New),
		slog.Int("modified", stats.Modified),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("deleted", stats.Deleted),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, cancelled
}

// UpsertDocument re-indexes one document unless it is unchanged.
func (m *Manager) UpsertDocument(ctx context.Context, doc document.Document) (DocState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.stateLocked(ctx, doc)
	if err != nil || state == StateUnchanged {
		return state, err
	}
	emit := events.NewEmitter(m.cfg.Events)
	var stats Stats
	if err := m.indexDocLocked(ctx, doc, emit, &stats, true); err != nil {
		return state, err
	}
	return state, m.finishLocked(ctx, emit)
}

// RemoveParent deletes a parent's chunks, embeddings, index entry and
// lexical postings. Removing an unknown parent is a no-op.
func (m *Manager) RemoveParent(ctx context.Context, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.removeLocked(ctx, parentID); err != nil {
		return err
	}
	return m.finishLocked(ctx, events.NewEmitter(m.cfg.Events))
}

// stateLocked classifies doc against its stored chunks, or against its
// stamp when it previously chunked to nothing.
func (m *Manager) stateLocked(ctx context.Context, doc document.Document) (DocState, error) {
	if stamp, ok := m.cfg.Parents.EmptyStamp(doc.ID); ok {
		if stamp == doc.LastUpdatedAt {
			return StateUnchanged, nil
		}
		return StateModified, nil
	}
	ids := m.cfg.Parents.Get(doc.ID)
	if len(ids) == 0 {
		return StateNew, nil
	}
	first, err := m.cfg.Chunks.Get(ctx, ids[0])
	if err != nil {
		if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
			return StateModified, nil
		}
		return StateUnchanged, err
	}
	if first.ParentLastUpdatedAt != doc.LastUpdatedAt {
		return StateModified, nil
	}
	return StateUnchanged, nil
}

// indexDocLocked chunks, embeds and stores one document. Chunking failures
// are per-item and leave the document unindexed; storage failures are
// returned. prune removes previously stored chunks first.
func (m *Manager) indexDocLocked(ctx context.Context, doc document.Document, emit *events.Emitter, stats *Stats, prune bool) error {
	if prune {
		if old := m.cfg.Parents.Remove(doc.ID); len(old) > 0 {
			if err := m.cfg.Chunks.Delete(ctx, old); err != nil {
				return err
			}
		}
	}

	res, err := m.cfg.Chunker.Chunk(ctx, doc)
	if err != nil {
		stats.Failed++
		emit.ItemFailed(doc.ID, err)
		m.logger.Warn("document_chunking_failed",
			slog.String("parent_id", doc.ID),
			slog.String("error", err.Error()))
		if rmErr := m.cfg.Lexical.Remove(ctx, doc.ID); rmErr != nil {
			return rmErr
		}
		return nil
	}
	if len(res.Chunks) == 0 {
		m.cfg.Parents.MarkEmpty(doc.ID, doc.LastUpdatedAt)
		return m.cfg.Lexical.Remove(ctx, doc.ID)
	}

	embedded, failures := m.embedChunks(ctx, res.Chunks)
	stats.Chunks += len(res.Chunks)
	stats.Embedded += embedded
	stats.EmbedFailures += len(failures)
	for _, f := range failures {
		emit.Fail(f.chunkID, f.err)
	}

	if err := m.cfg.Chunks.Put(ctx, res.Chunks); err != nil {
		return err
	}
	m.cfg.Parents.Set(doc.ID, res.ChunkIDs)
	return m.cfg.Lexical.AddOrUpdate(ctx, lexicalRecord(doc.ID, doc.Title, res.Chunks))
}

// removeLocked cascades a parent deletion.
func (m *Manager) removeLocked(ctx context.Context, parentID string) error {
	if ids := m.cfg.Parents.Remove(parentID); len(ids) > 0 {
		if err := m.cfg.Chunks.Delete(ctx, ids); err != nil {
			return err
		}
	}
	m.logger.Debug("parent_removed", slog.String("parent_id", parentID))
	return m.cfg.Lexical.Remove(ctx, parentID)
}

// addLexicalLocked re-adds a parent's lexical record from stored chunks.
func (m *Manager) addLexicalLocked(ctx context.Context, doc document.Document) error {
	stored, err := m.cfg.Chunks.GetMany(ctx, m.cfg.Parents.Get(doc.ID))
	if err != nil {
		return err
	}
	chunks := make([]chunk.Chunk, 0, len(stored))
	for _, id := range m.cfg.Parents.Get(doc.ID) {
		if c, ok := stored[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return m.cfg.Lexical.AddOrUpdate(ctx, lexicalRecord(doc.ID, doc.Title, chunks))
}

// finishLocked persists the parent index and invalidates semantic state.
func (m *Manager) finishLocked(ctx context.Context, emit *events.Emitter) error {
	if err := m.cfg.Parents.Save(context.WithoutCancel(ctx)); err != nil {
		emit.Fail("", err)
		return err
	}
	if m.cfg.Semantic != nil {
		m.cfg.Semantic.Invalidate()
	}
	return nil
}

// LexicalRecords builds one lexical record per indexed parent from its
// stored chunk bodies, titled with the document title when available.
func (m *Manager) LexicalRecords(ctx context.Context) ([]lexical.Record, error) {
	parents := m.cfg.Parents.Parents()
	records := make([]lexical.Record, 0, len(parents))
	for _, parent := range parents {
		ids := m.cfg.Parents.Get(parent)
		stored, err := m.cfg.Chunks.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		chunks := make([]chunk.Chunk, 0, len(ids))
		for _, id := range ids {
			if c, ok := stored[id]; ok {
				chunks = append(chunks, c)
			}
		}

		var title string
		if doc, err := m.cfg.Source.Get(ctx, parent); err == nil {
			title = doc.Title
		} else if !cerrors.HasCode(err, cerrors.ErrCodeNotFound) && !errors.Is(err, context.Canceled) {
			m.logger.Debug("lexical_title_unavailable",
				slog.String("parent_id", parent),
				slog.String("error", err.Error()))
		}
		records = append(records, lexicalRecord(parent, title, chunks))
	}
	return records, nil
}

func lexicalRecord(id, title string, chunks []chunk.Chunk) lexical.Record {
	bodies := make([]string, len(chunks))
	for i := range chunks {
		bodies[i] = chunks[i].Body()
	}
	return lexical.Record{ID: id, Title: title, Content: strings.Join(bodies, "\n\n")}
}
