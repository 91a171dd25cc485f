package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
)

// Persisted parent index keys.
const (
	ParentIndexKey = "parent_chunk_index"
	// ParentEmptyKey holds the LastUpdatedAt stamps of parents that
	// produced no chunks.
	ParentEmptyKey = "parent_chunk_index:empty"
)

// ParentIndex maps a parent document id to its ordered chunk ids.
// Parents that chunk to nothing have no entry but keep a stamp, so an
// unchanged empty document is not re-chunked. The index is held in memory
// and persisted explicitly with Save.
type ParentIndex struct {
	mu    sync.RWMutex
	kv    kv.Store
	m     map[string][]string
	empty map[string]int64
}

// NewParentIndex returns an empty index persisted to s.
func NewParentIndex(s kv.Store) *ParentIndex {
	return &ParentIndex{kv: s, m: make(map[string][]string), empty: make(map[string]int64)}
}

// LoadParentIndex reads the persisted index. A missing key yields an empty
// index; an undecodable value is a CorruptIndex error.
func LoadParentIndex(ctx context.Context, s kv.Store) (*ParentIndex, error) {
	p := NewParentIndex(s)
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload replaces the in-memory state with the persisted index.
func (p *ParentIndex) Reload(ctx context.Context) error {
	data, err := p.kv.Get(ctx, ParentIndexKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			p.Reset()
			return nil
		}
		return cerrors.IOError("failed to read parent index", err)
	}
	m := make(map[string][]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return cerrors.CorruptIndex(ParentIndexKey, err)
	}

	empty := make(map[string]int64)
	data, err = p.kv.Get(ctx, ParentEmptyKey)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &empty); err != nil {
			return cerrors.CorruptIndex(ParentEmptyKey, err)
		}
	case !errors.Is(err, kv.ErrNotFound):
		return cerrors.IOError("failed to read parent index", err)
	}

	p.mu.Lock()
	p.m = m
	p.empty = empty
	p.mu.Unlock()
	return nil
}

// Save persists the index.
func (p *ParentIndex) Save(ctx context.Context) error {
	p.mu.RLock()
	data, err := json.Marshal(p.m)
	var empty []byte
	if err == nil && len(p.empty) > 0 {
		empty, err = json.Marshal(p.empty)
	}
	p.mu.RUnlock()
	if err != nil {
		return cerrors.InternalError("failed to encode parent index", err)
	}
	if err := p.kv.Set(ctx, ParentIndexKey, data); err != nil {
		return cerrors.IOError("failed to store parent index", err)
	}
	if empty == nil {
		err = p.kv.Remove(ctx, ParentEmptyKey)
	} else {
		err = p.kv.Set(ctx, ParentEmptyKey, empty)
	}
	if err != nil {
		return cerrors.IOError("failed to store parent index", err)
	}
	return nil
}

// Delete removes the persisted index and clears memory.
func (p *ParentIndex) Delete(ctx context.Context) error {
	p.Reset()
	for _, key := range []string{ParentIndexKey, ParentEmptyKey} {
		if err := p.kv.Remove(ctx, key); err != nil {
			return cerrors.IOError("failed to remove parent index", err)
		}
	}
	return nil
}

// Reset clears the in-memory index.
func (p *ParentIndex) Reset() {
	p.mu.Lock()
	p.m = make(map[string][]string)
	p.empty = make(map[string]int64)
	p.mu.Unlock()
}

// Get returns a copy of the chunk ids of a parent.
func (p *ParentIndex) Get(parentID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.m[parentID])
}

// Has reports whether the parent is indexed.
func (p *ParentIndex) Has(parentID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.m[parentID]
	return ok
}

// Set replaces the chunk ids of a parent.
func (p *ParentIndex) Set(parentID string, chunkIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[parentID] = slices.Clone(chunkIDs)
	delete(p.empty, parentID)
}

// MarkEmpty records that a parent produced no chunks at lastUpdatedAt and
// drops any chunk ids it listed.
func (p *ParentIndex) MarkEmpty(parentID string, lastUpdatedAt int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, parentID)
	p.empty[parentID] = lastUpdatedAt
}

// EmptyStamp returns the stamp recorded by MarkEmpty.
func (p *ParentIndex) EmptyStamp(parentID string) (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stamp, ok := p.empty[parentID]
	return stamp, ok
}

// EmptyParents returns the parents marked empty in ascending order.
func (p *ParentIndex) EmptyParents() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.empty))
	for id := range p.empty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Remove drops a parent and its empty stamp and returns the chunk ids it
// listed.
func (p *ParentIndex) Remove(parentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.m[parentID]
	delete(p.m, parentID)
	delete(p.empty, parentID)
	return ids
}

// Parents returns the indexed parent ids in ascending order.
func (p *ParentIndex) Parents() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.m))
	for id := range p.m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of parents.
func (p *ParentIndex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// ChunkCount returns the total number of listed chunk ids.
func (p *ParentIndex) ChunkCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, ids := range p.m {
		n += len(ids)
	}
	return n
}

// IssueType categorizes a parent index inconsistency.
type IssueType int

const (
	// IssueOrphanChunk is a stored chunk that no parent lists.
	IssueOrphanChunk IssueType = iota
	// IssueMissingChunk is a listed chunk without a stored record.
	IssueMissingChunk
	// IssueDuplicateChunk is a chunk id listed more than once.
	IssueDuplicateChunk
)

// String returns a short name for the issue type.
func (t IssueType) String() string {
	switch t {
	case IssueOrphanChunk:
		return "orphan_chunk"
	case IssueMissingChunk:
		return "missing_chunk"
	case IssueDuplicateChunk:
		return "duplicate_chunk"
	default:
		return "unknown"
	}
}

// Issue is one detected inconsistency.
type Issue struct {
	Type     IssueType
	ChunkID  string
	ParentID string
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Parents  int
	Checked  int
	Issues   []Issue
	Duration time.Duration
}

// OK reports whether no issues were found.
func (r *VerifyResult) OK() bool { return len(r.Issues) == 0 }

// Count returns the number of issues of type t.
func (r *VerifyResult) Count(t IssueType) int {
	n := 0
	for _, is := range r.Issues {
		if is.Type == t {
			n++
		}
	}
	return n
}

// Verify checks the index against stored chunk records: every listed chunk
// must exist exactly once and every stored chunk must be listed.
func (p *ParentIndex) Verify(ctx context.Context, chunks *Chunks) (*VerifyResult, error) {
	start := time.Now()

	stored, err := chunks.IDs(ctx)
	if err != nil {
		return nil, err
	}
	storedSet := make(map[string]bool, len(stored))
	for _, id := range stored {
		storedSet[id] = true
	}

	res := &VerifyResult{}
	listed := make(map[string]bool)
	for _, parent := range p.Parents() {
		res.Parents++
		for _, id := range p.Get(parent) {
			res.Checked++
			if listed[id] {
				res.Issues = append(res.Issues, Issue{Type: IssueDuplicateChunk, ChunkID: id, ParentID: parent})
				continue
			}
			listed[id] = true
			if !storedSet[id] {
				res.Issues = append(res.Issues, Issue{Type: IssueMissingChunk, ChunkID: id, ParentID: parent})
			}
		}
	}
	for _, id := range stored {
		if !listed[id] {
			res.Issues = append(res.Issues, Issue{Type: IssueOrphanChunk, ChunkID: id})
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// Repair deletes orphaned chunk records and drops listed ids that have no
// record. Duplicates keep their first occurrence in parent id order. The caller
// persists the index afterwards.
func (p *ParentIndex) Repair(ctx context.Context, chunks *Chunks, res *VerifyResult) error {
	var orphans []string
	missing := make(map[string]bool)
	for _, is := range res.Issues {
		switch is.Type {
		case IssueOrphanChunk:
			orphans = append(orphans, is.ChunkID)
		case IssueMissingChunk:
			missing[is.ChunkID] = true
		}
	}
	if err := chunks.Delete(ctx, orphans); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	parents := make([]string, 0, len(p.m))
	for parent := range p.m {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	seen := make(map[string]bool)
	for _, parent := range parents {
		ids := p.m[parent]
		kept := ids[:0]
		for _, id := range ids {
			if missing[id] || seen[id] {
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		p.m[parent] = kept
	}
	return nil
}
