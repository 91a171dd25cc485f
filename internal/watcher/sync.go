package watcher

import (
	"context"
	"log/slog"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/index"
)

// Indexer is the part of index.Manager a Syncer drives.
type Indexer interface {
	UpsertDocument(ctx context.Context, doc document.Document) (index.DocState, error)
	RemoveParent(ctx context.Context, parentID string) error
}

// SyncStats counts what one batch changed.
type SyncStats struct {
	Upserted  int
	Unchanged int
	Removed   int
	Failed    int
}

// Syncer applies watcher batches to the index. Paths are document ids.
type Syncer struct {
	source  document.Source
	indexer Indexer
	logger  *slog.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(source document.Source, indexer Indexer, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{source: source, indexer: indexer, logger: logger}
}

// Apply processes a batch in order. A failing event is logged and counted;
// the rest of the batch still runs. Only cancellation aborts the batch.
func (s *Syncer) Apply(ctx context.Context, batch []FileEvent) (SyncStats, error) {
	var stats SyncStats
	for _, ev := range batch {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if ev.IsDir {
			continue
		}

		var err error
		switch ev.Operation {
		case OpDelete, OpRename:
			err = s.remove(ctx, ev.Path, &stats)
		case OpCreate, OpModify:
			err = s.upsert(ctx, ev.Path, &stats)
		}
		if err != nil {
			stats.Failed++
			s.logger.Warn("watch_sync_failed",
				slog.String("path", ev.Path),
				slog.String("op", ev.Operation.String()),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Debug("watch_batch_applied",
		slog.Int("events", len(batch)),
		slog.Int("upserted", stats.Upserted),
		slog.Int("removed", stats.Removed),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

func (s *Syncer) upsert(ctx context.Context, id string, stats *SyncStats) error {
	doc, err := s.source.Get(ctx, id)
	if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
		// Gone again, or filtered out by the source.
		return s.remove(ctx, id, stats)
	}
	if err != nil {
		return err
	}

	state, err := s.indexer.UpsertDocument(ctx, doc)
	if err != nil {
		return err
	}
	if state == index.StateUnchanged {
		stats.Unchanged++
	} else {
		stats.Upserted++
	}
	return nil
}

func (s *Syncer) remove(ctx context.Context, id string, stats *SyncStats) error {
	if err := s.indexer.RemoveParent(ctx, id); err != nil {
		return err
	}
	stats.Removed++
	return nil
}
