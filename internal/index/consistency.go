package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/store"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyOrphanChunk is a stored chunk that no parent lists.
	InconsistencyOrphanChunk InconsistencyType = iota
	// InconsistencyMissingChunk is a listed chunk without a stored record.
	InconsistencyMissingChunk
	// InconsistencyDuplicateChunk is a chunk listed by more than one parent.
	InconsistencyDuplicateChunk
	// InconsistencyOrphanLexical is a lexical record for an unindexed parent.
	InconsistencyOrphanLexical
	// InconsistencyMissingLexical is an indexed parent absent from the lexical index.
	InconsistencyMissingLexical
)

// String returns a short name for the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphanChunk:
		return "orphan_chunk"
	case InconsistencyMissingChunk:
		return "missing_chunk"
	case InconsistencyDuplicateChunk:
		return "duplicate_chunk"
	case InconsistencyOrphanLexical:
		return "orphan_lexical"
	case InconsistencyMissingLexical:
		return "missing_lexical"
	default:
		return "unknown"
	}
}

// Inconsistency represents a detected cross-store issue.
type Inconsistency struct {
	Type     InconsistencyType
	ChunkID  string
	ParentID string
}

// CheckResult contains the outcome of a consistency check.
type CheckResult struct {
	// Parents is the number of indexed parents.
	Parents int
	// Checked is the number of chunk ids verified.
	Checked int
	// Inconsistencies contains all detected issues.
	Inconsistencies []Inconsistency
	// Duration is how long the check took.
	Duration time.Duration
}

// OK reports whether no issues were found.
func (r *CheckResult) OK() bool { return len(r.Inconsistencies) == 0 }

// Count returns the number of issues of type t.
func (r *CheckResult) Count(t InconsistencyType) int {
	n := 0
	for _, is := range r.Inconsistencies {
		if is.Type == t {
			n++
		}
	}
	return n
}

var issueTypes = map[store.IssueType]InconsistencyType{
	store.IssueOrphanChunk:    InconsistencyOrphanChunk,
	store.IssueMissingChunk:   InconsistencyMissingChunk,
	store.IssueDuplicateChunk: InconsistencyDuplicateChunk,
}

// Check compares the parent index with stored chunks and the lexical index.
// The parent index is the source of truth.
func (m *Manager) Check(ctx context.Context) (*CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkLocked(ctx)
}

func (m *Manager) checkLocked(ctx context.Context) (*CheckResult, error) {
	start := time.Now()

	verify, err := m.cfg.Parents.Verify(ctx, m.cfg.Chunks)
	if err != nil {
		return nil, err
	}
	res := &CheckResult{Parents: verify.Parents, Checked: verify.Checked}
	for _, is := range verify.Issues {
		res.Inconsistencies = append(res.Inconsistencies, Inconsistency{
			Type:     issueTypes[is.Type],
			ChunkID:  is.ChunkID,
			ParentID: is.ParentID,
		})
	}

	for _, id := range m.cfg.Lexical.IDs() {
		if !m.cfg.Parents.Has(id) {
			res.Inconsistencies = append(res.Inconsistencies, Inconsistency{Type: InconsistencyOrphanLexical, ParentID: id})
		}
	}
	for _, parent := range m.cfg.Parents.Parents() {
		if len(m.cfg.Parents.Get(parent)) > 0 && !m.cfg.Lexical.Has(parent) {
			res.Inconsistencies = append(res.Inconsistencies, Inconsistency{Type: InconsistencyMissingLexical, ParentID: parent})
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// Repair fixes the issues in res:
//   - orphan chunks are deleted, missing and duplicate ids are dropped from the parent index
//   - orphan lexical records are removed, missing ones are rebuilt from stored chunks
//
// The parent index is persisted afterwards.
func (m *Manager) Repair(ctx context.Context, res *CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	verify := &store.VerifyResult{}
	var orphanLexical, missingLexical []string
	for _, is := range res.Inconsistencies {
		switch is.Type {
		case InconsistencyOrphanChunk:
			verify.Issues = append(verify.Issues, store.Issue{Type: store.IssueOrphanChunk, ChunkID: is.ChunkID})
		case InconsistencyMissingChunk:
			verify.Issues = append(verify.Issues, store.Issue{Type: store.IssueMissingChunk, ChunkID: is.ChunkID, ParentID: is.ParentID})
		case InconsistencyDuplicateChunk:
			verify.Issues = append(verify.Issues, store.Issue{Type: store.IssueDuplicateChunk, ChunkID: is.ChunkID, ParentID: is.ParentID})
		case InconsistencyOrphanLexical:
			orphanLexical = append(orphanLexical, is.ParentID)
		case InconsistencyMissingLexical:
			missingLexical = append(missingLexical, is.ParentID)
		}
	}

	if len(verify.Issues) > 0 {
		if err := m.cfg.Parents.Repair(ctx, m.cfg.Chunks, verify); err != nil {
			return err
		}
		m.logger.Info("parent_index_repaired", slog.Int("issues", len(verify.Issues)))
	}
	for _, id := range orphanLexical {
		if err := m.cfg.Lexical.Remove(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range missingLexical {
		doc, err := m.cfg.Source.Get(ctx, id)
		if err != nil {
			// The document is gone; the next incremental update prunes it.
			m.logger.Debug("lexical_repair_skipped",
				slog.String("parent_id", id),
				slog.String("error", err.Error()))
			continue
		}
		if err := m.addLexicalLocked(ctx, doc); err != nil {
			return err
		}
	}
	if len(orphanLexical)+len(missingLexical) > 0 {
		m.logger.Info("lexical_index_repaired",
			slog.Int("removed", len(orphanLexical)),
			slog.Int("added", len(missingLexical)))
	}

	return m.finishLocked(ctx, events.NewEmitter(m.cfg.Events))
}

// Status describes the index for display.
type Status struct {
	Parents    int           `json:"parents"`
	Chunks     int           `json:"chunks"`
	Embedded   int           `json:"embedded"`
	Model      string        `json:"model"`
	Dimensions int           `json:"dimensions"`
	Lexical    lexical.Stats `json:"lexical"`
	Issues     int           `json:"issues"`
}

// Status returns counts across the stores plus the number of detected
// inconsistencies.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	embedded, err := m.cfg.Chunks.EmbeddingCount(ctx)
	if err != nil {
		return Status{}, err
	}
	check, err := m.checkLocked(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Parents:    m.cfg.Parents.Len(),
		Chunks:     m.cfg.Parents.ChunkCount(),
		Embedded:   embedded,
		Model:      m.cfg.Embedder.ModelName(),
		Dimensions: m.cfg.Embedder.Dimensions(),
		Lexical:    m.cfg.Lexical.Stats(),
		Issues:     len(check.Inconsistencies),
	}
	return st, nil
}
