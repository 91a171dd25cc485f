package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
)

func TestVector_RoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3e-7}

	got, err := DecodeVector(EncodeVector(v))

	require.NoError(t, err)
	assert.Equal(t, v, got)
	assert.Equal(t, []byte{0, 0, 0xc0, 0x3f}, EncodeVector([]float32{1.5}))

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestChunks_PutGetDelete(t *testing.T) {
	// Given: a chunk with an embedding
	ctx := context.Background()
	mem := kv.NewMemory()
	cs := NewChunks(mem)
	ch := chunk.Chunk{ID: "notechunk_n_0", ParentID: "n", Content: "body", CharCount: 4, Embedding: []float32{1, 2}}

	// When: stored
	require.NoError(t, cs.Put(ctx, []chunk.Chunk{ch}))

	// Then: the record omits the embedding and the vector is stored separately
	got, err := cs.Get(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Content)
	assert.Nil(t, got.Embedding)

	vec, err := cs.Embedding(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)

	keys, err := mem.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk:notechunk_n_0", "embedding:notechunk_n_0"}, keys)

	// When: deleted
	require.NoError(t, cs.Delete(ctx, []string{ch.ID}))

	// Then: both are gone
	_, err = cs.Get(ctx, ch.ID)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrCodeNotFound))
	_, err = cs.Embedding(ctx, ch.ID)
	assert.True(t, cerrors.HasCode(err, cerrors.ErrCodeNotFound))
	assert.Equal(t, 0, mem.Len())
}

func TestChunks_GetManySkipsMissing(t *testing.T) {
	ctx := context.Background()
	cs := NewChunks(kv.NewMemory())
	require.NoError(t, cs.Put(ctx, []chunk.Chunk{{ID: "a"}, {ID: "b"}}))

	got, err := cs.GetMany(ctx, []string{"a", "missing", "b", "a"})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
}

func TestChunks_ForEachEmbeddingSorted(t *testing.T) {
	ctx := context.Background()
	cs := NewChunks(kv.NewMemory())
	require.NoError(t, cs.Put(ctx, []chunk.Chunk{
		{ID: "c", Embedding: []float32{3}},
		{ID: "a", Embedding: []float32{1}},
		{ID: "b"},
	}))

	var ids []string
	err := cs.ForEachEmbedding(ctx, func(id string, vec []float32) error {
		ids = append(ids, id)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
	n, err := cs.EmbeddingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChunks_ClearKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	cs := NewChunks(mem)
	require.NoError(t, cs.Put(ctx, []chunk.Chunk{{ID: "a", Embedding: []float32{1}}}))
	require.NoError(t, mem.Set(ctx, "lexical:consolidated", []byte("{}")))

	require.NoError(t, cs.Clear(ctx))

	keys, err := mem.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lexical:consolidated"}, keys)
}

func TestParentIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	p := NewParentIndex(mem)
	p.Set("n2", []string{"notechunk_n2_0"})
	p.Set("n1", []string{"notechunk_n1_0", "notechunk_n1_1"})
	require.NoError(t, p.Save(ctx))

	loaded, err := LoadParentIndex(ctx, mem)

	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, loaded.Parents())
	assert.Equal(t, []string{"notechunk_n1_0", "notechunk_n1_1"}, loaded.Get("n1"))
	assert.Equal(t, 3, loaded.ChunkCount())
	assert.Equal(t, 2, loaded.Len())
}

func TestParentIndex_LoadMissingIsEmpty(t *testing.T) {
	p, err := LoadParentIndex(context.Background(), kv.NewMemory())

	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestParentIndex_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(ctx, ParentIndexKey, []byte("{not json")))

	_, err := LoadParentIndex(ctx, mem)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeCorruptIndex, cerrors.GetCode(err))
}

func TestParentIndex_EmptyStampsPersist(t *testing.T) {
	// Given: one parent with chunks and one that chunked to nothing
	ctx := context.Background()
	mem := kv.NewMemory()
	p := NewParentIndex(mem)
	p.Set("full", []string{"notechunk_full_0"})
	p.MarkEmpty("blank", 7)
	require.NoError(t, p.Save(ctx))

	// When: reloaded
	loaded, err := LoadParentIndex(ctx, mem)
	require.NoError(t, err)

	// Then: the empty parent keeps its stamp but no entry
	assert.Equal(t, []string{"full"}, loaded.Parents())
	assert.False(t, loaded.Has("blank"))
	stamp, ok := loaded.EmptyStamp("blank")
	assert.True(t, ok)
	assert.Equal(t, int64(7), stamp)

	// And: indexing it later clears the stamp and its key
	loaded.Set("blank", []string{"notechunk_blank_0"})
	require.NoError(t, loaded.Save(ctx))
	_, ok = loaded.EmptyStamp("blank")
	assert.False(t, ok)
	_, err = mem.Get(ctx, ParentEmptyKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestParentIndex_GetReturnsCopy(t *testing.T) {
	p := NewParentIndex(kv.NewMemory())
	ids := []string{"a"}
	p.Set("n", ids)
	ids[0] = "mutated"

	got := p.Get("n")
	got[0] = "also mutated"

	assert.Equal(t, []string{"a"}, p.Get("n"))
}

func TestParentIndex_VerifyAndRepair(t *testing.T) {
	// Given: an index with a missing entry, a duplicate, and an orphan record
	ctx := context.Background()
	mem := kv.NewMemory()
	cs := NewChunks(mem)
	require.NoError(t, cs.Put(ctx, []chunk.Chunk{{ID: "a0"}, {ID: "b0"}, {ID: "orphan"}}))
	p := NewParentIndex(mem)
	p.Set("a", []string{"a0", "gone"})
	p.Set("b", []string{"b0", "a0"})

	// When: verifying
	res, err := p.Verify(ctx, cs)

	// Then: all three issue types are reported
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Parents)
	assert.Equal(t, 4, res.Checked)
	assert.Equal(t, 1, res.Count(IssueMissingChunk))
	assert.Equal(t, 1, res.Count(IssueDuplicateChunk))
	assert.Equal(t, 1, res.Count(IssueOrphanChunk))

	// When: repairing
	require.NoError(t, p.Repair(ctx, cs, res))

	// Then: a second check is clean
	again, err := p.Verify(ctx, cs)
	require.NoError(t, err)
	assert.True(t, again.OK(), "%v", again.Issues)
	assert.Equal(t, []string{"a0"}, p.Get("a"))
	assert.Equal(t, []string{"b0"}, p.Get("b"))
}

func TestIssueType_String(t *testing.T) {
	assert.Equal(t, "orphan_chunk", IssueOrphanChunk.String())
	assert.Equal(t, "missing_chunk", IssueMissingChunk.String())
	assert.Equal(t, "duplicate_chunk", IssueDuplicateChunk.String())
	assert.Equal(t, "unknown", IssueType(99).String())
}
