// Package lexical implements the BM25 keyword index over parent documents,
// with language-aware analysis and debounced two-tier persistence. Scoring
// runs on an in-memory bleve index rebuilt from the authoritative record set.
package lexical

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Default index parameters.
const (
	DefaultContentWeight        = 1.0
	DefaultTitleWeight          = 0.2
	DefaultDebounce             = 500 * time.Millisecond
	DefaultConsolidateThreshold = 5
)

// Record is one indexed parent document.
type Record struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Hit is a scored parent id.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Loader returns the authoritative record set for RebuildAll.
type Loader func(ctx context.Context) ([]Record, error)

// Options configures an Index.
type Options struct {
	// ContentWeight and TitleWeight boost the per-field clauses of a query.
	// A zero weight drops the field from scoring.
	ContentWeight float64
	TitleWeight   float64

	// Debounce is the quiet period before a mutation burst is persisted.
	Debounce time.Duration

	// ConsolidateThreshold is the number of persisted rebuilds after which
	// the index consolidates.
	ConsolidateThreshold int

	// ReadOnly keeps consolidation in memory; nothing is written to or
	// removed from the store.
	ReadOnly bool

	Scheduler Scheduler
	Loader    Loader
	Logger    *slog.Logger
}

// DefaultOptions returns the default options with the wall-clock scheduler.
func DefaultOptions() Options {
	return Options{
		ContentWeight:        DefaultContentWeight,
		TitleWeight:          DefaultTitleWeight,
		Debounce:             DefaultDebounce,
		ConsolidateThreshold: DefaultConsolidateThreshold,
		Scheduler:            TimerScheduler(),
	}
}

// OptionsFromConfig maps lexical configuration onto Options.
func OptionsFromConfig(cfg config.LexicalConfig) Options {
	opts := DefaultOptions()
	opts.ContentWeight = cfg.ContentWeight
	opts.TitleWeight = cfg.TitleWeight
	opts.Debounce = config.Duration(cfg.Debounce, DefaultDebounce)
	if cfg.ConsolidateThreshold > 0 {
		opts.ConsolidateThreshold = cfg.ConsolidateThreshold
	}
	return opts
}

// Stats describes the index state.
type Stats struct {
	Records            int       `json:"records"`
	Terms              int       `json:"terms"`
	Changes            int       `json:"changes"`
	Pending            bool      `json:"pending"`
	Rebuilds           int       `json:"rebuilds"`
	Consolidations     int       `json:"consolidations"`
	LastConsolidatedAt time.Time `json:"lastConsolidatedAt,omitzero"`
}

// Index is a BM25 index over an in-memory authoritative record set.
// Mutations are coalesced by a single-slot debounce; the persisted form is
// always derived from the record set.
type Index struct {
	mu      sync.Mutex
	kv      kv.Store
	mapping *mapping.IndexMappingImpl
	opts    Options
	logger  *slog.Logger

	records map[string]Record
	scripts map[string]fieldScripts
	built   *searchIndex

	changes int
	pending Task
	gen     uint64
	// seq orders persisted forms; every write carries the next value.
	seq uint64

	rebuilds           int
	consolidations     int
	lastConsolidatedAt time.Time
	closed             bool
}

// New creates an empty index persisted to store. Call Load to import a
// previously persisted state.
func New(store kv.Store, opts Options) (*Index, error) {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.ConsolidateThreshold <= 0 {
		opts.ConsolidateThreshold = DefaultConsolidateThreshold
	}
	if opts.ContentWeight < 0 || opts.TitleWeight < 0 {
		return nil, cerrors.ValidationError("field weights must not be negative", nil).
			WithDetail("content_weight", strconv.FormatFloat(opts.ContentWeight, 'g', -1, 64)).
			WithDetail("title_weight", strconv.FormatFloat(opts.TitleWeight, 'g', -1, 64))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newSearchMapping()
	if err != nil {
		return nil, cerrors.InternalError("failed to build analyzers", err)
	}
	return &Index{
		kv:      store,
		mapping: m,
		opts:    opts,
		logger:  logger,
		records: make(map[string]Record),
		scripts: make(map[string]fieldScripts),
	}, nil
}

// SetLoader sets the loader used by RebuildAll.
func (idx *Index) SetLoader(l Loader) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.opts.Loader = l
}

// AddOrUpdate inserts or replaces a record and schedules a rebuild.
func (idx *Index) AddOrUpdate(ctx context.Context, r Record) error {
	if r.ID == "" {
		return cerrors.ValidationError("record id is required", nil)
	}
	scripts := classifyRecord(r)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return cerrors.InternalError("lexical index is closed", nil)
	}
	idx.records[r.ID] = r
	idx.scripts[r.ID] = scripts
	idx.scheduleLocked()
	return nil
}

// Remove deletes a record. Removing an unknown id is a no-op.
func (idx *Index) Remove(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return cerrors.InternalError("lexical index is closed", nil)
	}
	if _, ok := idx.records[id]; !ok {
		return nil
	}
	delete(idx.records, id)
	delete(idx.scripts, id)
	idx.scheduleLocked()
	return nil
}

// Has reports whether id is indexed.
func (idx *Index) Has(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.records[id]
	return ok
}

// Len returns the number of records.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.records)
}

// IDs returns the indexed record ids in ascending order.
func (idx *Index) IDs() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids := make([]string, 0, len(idx.records))
	for id := range idx.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scheduleLocked replaces any pending rebuild with a new one.
func (idx *Index) scheduleLocked() {
	idx.cancelPendingLocked()
	idx.gen++
	gen := idx.gen
	idx.pending = idx.opts.Scheduler.AfterFunc(idx.opts.Debounce, func() {
		idx.runScheduled(gen)
	})
}

func (idx *Index) cancelPendingLocked() {
	if idx.pending != nil {
		idx.pending.Stop()
		idx.pending = nil
	}
	// A callback that already started sees a newer generation and exits.
	idx.gen++
}

func (idx *Index) runScheduled(gen uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if gen != idx.gen || idx.closed {
		return
	}
	idx.pending = nil
	idx.rebuildLocked(context.Background())
}

// rebuildLocked rebuilds the search structure, persists the unconsolidated
// form and consolidates once enough changes have accumulated.
func (idx *Index) rebuildLocked(ctx context.Context) {
	if err := idx.buildLocked(); err != nil {
		idx.logger.Error("lexical_rebuild_failed", slog.String("error", err.Error()))
	}
	idx.changes++
	idx.rebuilds++

	if err := idx.persistLocked(ctx, UnconsolidatedKey, snapshot{Changes: idx.changes, Records: idx.recordList()}); err != nil {
		idx.logger.Error("lexical_persist_failed",
			slog.String("form", "unconsolidated"),
			slog.String("error", err.Error()))
	}
	idx.logger.Debug("lexical_rebuilt",
		slog.Int("records", len(idx.records)),
		slog.Int("changes", idx.changes))

	if idx.changes >= idx.opts.ConsolidateThreshold {
		if err := idx.consolidateLocked(ctx); err != nil {
			idx.logger.Error("lexical_consolidate_failed", slog.String("error", err.Error()))
		}
	}
}

// consolidateLocked performs a full deterministic rebuild and replaces the
// unconsolidated form with the consolidated one.
func (idx *Index) consolidateLocked(ctx context.Context) error {
	idx.cancelPendingLocked()
	if err := idx.buildLocked(); err != nil {
		return err
	}

	snap := snapshot{Consolidated: true, Records: idx.recordList(), Scripts: idx.scriptList()}
	if err := idx.persistLocked(ctx, ConsolidatedKey, snap); err != nil {
		return err
	}
	if !idx.opts.ReadOnly {
		if err := idx.kv.Remove(ctx, UnconsolidatedKey); err != nil {
			return cerrors.IOError("failed to remove unconsolidated lexical index", err)
		}
	}
	idx.changes = 0
	idx.consolidations++
	idx.lastConsolidatedAt = time.Now()
	idx.logger.Info("lexical_consolidated",
		slog.Int("records", len(idx.records)),
		slog.Int("terms", idx.built.terms),
		slog.Bool("read_only", idx.opts.ReadOnly))
	return nil
}

// buildLocked replaces the search structure with one built from the
// record set.
func (idx *Index) buildLocked() error {
	built, err := buildSearchIndex(idx.mapping, idx.recordList(), idx.scripts)
	if err != nil {
		return cerrors.InternalError("failed to build lexical index", err)
	}
	if err := idx.built.close(); err != nil {
		idx.logger.Warn("lexical_close_failed", slog.String("error", err.Error()))
	}
	idx.built = built
	return nil
}

// persistLocked writes one persisted form under the next sequence number.
// It is a no-op in read-only mode.
func (idx *Index) persistLocked(ctx context.Context, key string, snap snapshot) error {
	if idx.opts.ReadOnly {
		return nil
	}
	idx.seq++
	snap.Sequence = idx.seq
	data, err := encodeSnapshot(snap)
	if err != nil {
		return cerrors.InternalError("failed to encode lexical index", err)
	}
	if err := idx.kv.Set(ctx, key, data); err != nil {
		return cerrors.IOError("failed to persist lexical index", err).WithDetail("key", key)
	}
	return nil
}

func (idx *Index) dirtyLocked() bool {
	return idx.changes > 0 || idx.pending != nil
}

func (idx *Index) scriptList() []fieldScripts {
	out := make([]fieldScripts, 0, len(idx.scripts))
	for _, fs := range idx.scripts {
		out = append(out, fs)
	}
	return out
}

func (idx *Index) recordList() []Record {
	out := make([]Record, 0, len(idx.records))
	for _, r := range idx.records {
		out = append(out, r)
	}
	return out
}

// Search returns up to topK parent ids by descending score, ties broken by
// ascending id. Pending changes are consolidated first.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" || topK <= 0 {
		return nil, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil, cerrors.InternalError("lexical index is closed", nil)
	}
	if idx.dirtyLocked() {
		if err := idx.consolidateLocked(ctx); err != nil {
			idx.logger.Warn("lexical_consolidate_failed", slog.String("error", err.Error()))
		}
	}
	if idx.built == nil {
		if err := idx.buildLocked(); err != nil {
			return nil, err
		}
	}

	hits, err := idx.built.search(ctx, query, idx.opts.ContentWeight, idx.opts.TitleWeight)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSearchFailed, err)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// RebuildAll replaces the record set with the loader's output and
// consolidates immediately.
func (idx *Index) RebuildAll(ctx context.Context) error {
	idx.mu.Lock()
	loader := idx.opts.Loader
	idx.cancelPendingLocked()
	idx.mu.Unlock()

	if loader == nil {
		return cerrors.InternalError("lexical index has no loader", nil)
	}
	records, err := loader(ctx)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeIndexFailed, err)
	}

	recs := make(map[string]Record, len(records))
	scripts := make(map[string]fieldScripts, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		recs[r.ID] = r
		scripts[r.ID] = classifyRecord(r)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return cerrors.InternalError("lexical index is closed", nil)
	}
	idx.records = recs
	idx.scripts = scripts
	return idx.consolidateLocked(ctx)
}

// Load imports the authoritative persisted form: the one with the higher
// sequence number, or the unconsolidated one when both carry the same. A
// corrupt form is logged and answered with RebuildAll.
func (idx *Index) Load(ctx context.Context) error {
	var (
		best    *snapshot
		bestKey string
		maxSeq  uint64
	)
	for _, key := range []string{UnconsolidatedKey, ConsolidatedKey} {
		data, err := idx.kv.Get(ctx, key)
		if err != nil {
			if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
				continue
			}
			return cerrors.IOError("failed to read lexical index", err)
		}

		snap, err := decodeSnapshot(data)
		if err != nil {
			return idx.recoverCorrupt(ctx, key, err)
		}
		maxSeq = max(maxSeq, snap.Sequence)
		if best == nil || snap.Sequence > best.Sequence {
			best, bestKey = &snap, key
		}
	}
	if best == nil {
		return nil
	}

	if err := idx.importSnapshot(*best); err != nil {
		return idx.recoverCorrupt(ctx, bestKey, err)
	}
	idx.mu.Lock()
	idx.seq = maxSeq
	idx.mu.Unlock()
	idx.logger.Debug("lexical_loaded",
		slog.String("key", bestKey),
		slog.Uint64("sequence", best.Sequence),
		slog.Int("records", idx.Len()))
	return nil
}

func (idx *Index) recoverCorrupt(ctx context.Context, key string, err error) error {
	corrupt := cerrors.CorruptIndex(key, err)
	idx.logger.Warn("lexical_index_corrupt",
		slog.String("key", key),
		slog.String("error", err.Error()))
	if idx.opts.Loader == nil {
		return corrupt
	}
	return idx.RebuildAll(ctx)
}

func (idx *Index) importSnapshot(snap snapshot) error {
	recs := make(map[string]Record, len(snap.Records))
	for _, r := range snap.Records {
		recs[r.ID] = r
	}
	scripts := make(map[string]fieldScripts, len(snap.Records))
	if snap.Consolidated {
		for _, fs := range snap.Scripts {
			if _, ok := recs[fs.ID]; !ok {
				return cerrors.New(cerrors.ErrCodeCorruptIndex, "scripts for unknown record "+fs.ID, nil)
			}
			scripts[fs.ID] = fs
		}
	} else {
		for _, r := range snap.Records {
			scripts[r.ID] = classifyRecord(r)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cancelPendingLocked()
	idx.records = recs
	idx.scripts = scripts
	if err := idx.buildLocked(); err != nil {
		return err
	}
	idx.changes = 0
	if !snap.Consolidated {
		idx.changes = max(snap.Changes, 1)
	}
	return nil
}

// Flush consolidates pending changes.
func (idx *Index) Flush(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed || !idx.dirtyLocked() {
		return nil
	}
	return idx.consolidateLocked(ctx)
}

// Stats returns a snapshot of the index state.
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	st := Stats{
		Records:            len(idx.records),
		Changes:            idx.changes,
		Pending:            idx.pending != nil,
		Rebuilds:           idx.rebuilds,
		Consolidations:     idx.consolidations,
		LastConsolidatedAt: idx.lastConsolidatedAt,
	}
	if idx.built != nil {
		st.Terms = idx.built.terms
	}
	return st
}

// Close flushes pending changes, releases the search structure and stops
// accepting mutations.
func (idx *Index) Close() error {
	err := idx.Flush(context.Background())
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cancelPendingLocked()
	idx.closed = true
	if cerr := idx.built.close(); cerr != nil && err == nil {
		err = cerr
	}
	idx.built = nil
	return err
}
