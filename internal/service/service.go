// Package service assembles the retrieval core from configuration and explicit
// collaborators. A Service is constructed once per process and passed to
// whatever needs it; nothing in the core reaches for global state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/complete"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/index"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/semantic"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "cognito.db"

// Options carries the collaborators of a Service. Nil collaborators are
// built from Config.
type Options struct {
	Config *config.Config

	Store     kv.Store
	Embedder  embed.Embedder
	Completer complete.Completer
	Source    document.Source
	Events    events.Sink
	Logger    *slog.Logger

	// ReadOnly skips the data directory lock and keeps lexical
	// consolidation in memory, so the store is never written. Use it for
	// processes that only query, such as one-shot searches.
	ReadOnly bool
}

// Service owns the stores and indexes of one data directory.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	kv        kv.Store
	ownsStore bool
	lock      *kv.DirLock

	Source   document.Source
	Embedder embed.Embedder
	Chunks   *store.Chunks
	Parents  *store.ParentIndex
	Lexical  *lexical.Index
	Semantic semantic.Index
	Manager  *index.Manager
	Ranker   *search.Ranker
}

// New opens the store, loads the persisted indexes and wires the manager and
// ranker. The returned Service must be closed.
func New(ctx context.Context, opts Options) (_ *Service, err error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if err := s.openStore(opts); err != nil {
		return nil, err
	}

	if s.Source = opts.Source; s.Source == nil {
		fs, err := document.NewFS(cfg.Sources.Root, document.FSOptions{
			Include: cfg.Sources.Include,
			Exclude: cfg.Sources.Exclude,
		})
		if err != nil {
			return nil, err
		}
		s.Source = fs
	}

	if s.Embedder = opts.Embedder; s.Embedder == nil {
		if s.Embedder, err = embed.New(cfg.Embeddings); err != nil {
			return nil, err
		}
	}

	completer := opts.Completer
	if completer == nil && cfg.Chunking.UseContextualSummaries {
		if completer, err = complete.New(cfg.Completion); err != nil {
			return nil, err
		}
	}

	s.Chunks = store.NewChunks(s.kv)
	if s.Parents, err = store.LoadParentIndex(ctx, s.kv); err != nil {
		return nil, err
	}

	lexOpts := lexical.OptionsFromConfig(cfg.Lexical)
	lexOpts.Logger = logger
	lexOpts.ReadOnly = opts.ReadOnly
	if s.Lexical, err = lexical.New(s.kv, lexOpts); err != nil {
		return nil, err
	}
	s.Semantic = semantic.New(cfg.Semantic.Backend, s.Chunks, logger)

	chunkOpts := []chunk.Option{chunk.WithLogger(logger)}
	if completer != nil {
		chunkOpts = append(chunkOpts, chunk.WithCompleter(completer))
	}
	s.Manager, err = index.NewManager(index.Config{
		Source:      s.Source,
		Chunker:     chunk.New(chunk.OptionsFromConfig(cfg.Chunking), chunkOpts...),
		Embedder:    s.Embedder,
		Chunks:      s.Chunks,
		Parents:     s.Parents,
		Lexical:     s.Lexical,
		Semantic:    s.Semantic,
		Events:      opts.Events,
		Logger:      logger,
		BatchSize:   cfg.Embeddings.BatchSize,
		Concurrency: cfg.Embeddings.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	// The manager installs the loader, so a corrupt snapshot rebuilds here.
	if err := s.Lexical.Load(ctx); err != nil {
		return nil, err
	}

	s.Ranker = search.NewRanker(s.Lexical, s.Semantic, s.Embedder, s.Parents, s.Chunks, s.Source,
		search.WithLogger(logger),
		search.WithDefaults(search.OptionsFromConfig(cfg.Search, cfg.Semantic)))

	logger.Debug("service_ready",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("embedder", s.Embedder.ModelName()),
		slog.Int("parents", s.Parents.Len()),
		slog.Int("lexical_records", s.Lexical.Len()))
	return s, nil
}

func (s *Service) openStore(opts Options) error {
	if opts.Store != nil {
		s.kv = opts.Store
		return nil
	}

	switch strings.ToLower(s.cfg.Storage.Backend) {
	case "memory":
		s.kv = kv.NewMemory()
	case "", "sqlite":
		dir := s.cfg.Storage.DataDir
		if !opts.ReadOnly {
			s.lock = kv.NewDirLock(dir)
			if err := s.lock.TryLock(); err != nil {
				return err
			}
		}
		db, err := kv.OpenSQLite(filepath.Join(dir, DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		s.kv = db
	default:
		return fmt.Errorf("unknown storage backend %q", s.cfg.Storage.Backend)
	}
	s.ownsStore = true
	return nil
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Search ranks query with the configured defaults.
func (s *Service) Search(ctx context.Context, query string) ([]search.HybridResult, error) {
	return s.Ranker.Search(ctx, query)
}

// Rank ranks query with explicit options.
func (s *Service) Rank(ctx context.Context, query string, opts search.Options) ([]search.HybridResult, error) {
	return s.Ranker.Rank(ctx, query, opts)
}

// Close flushes the lexical index and releases the store, the embedder and
// the data directory lock.
func (s *Service) Close() error {
	var errs []error
	if s.Lexical != nil {
		errs = append(errs, s.Lexical.Close())
	}
	if s.Embedder != nil {
		errs = append(errs, s.Embedder.Close())
	}
	if s.kv != nil && s.ownsStore {
		errs = append(errs, s.kv.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	return errors.Join(errs...)
}
