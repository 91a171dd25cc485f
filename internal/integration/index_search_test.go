package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

func TestIntegration_IndexAndSearchNotes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: a notes directory indexed from scratch
	ctx := context.Background()
	dir := createNotesDir(t)
	svc := openService(t, dir)
	defer func() { _ = svc.Close() }()

	stats, err := svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Zero(t, stats.Failed)
	assert.GreaterOrEqual(t, stats.Chunks, 3)
	assert.Equal(t, stats.Chunks, stats.Embedded)
	assert.False(t, svc.Parents.Has("node_modules/ignored.md"))

	t.Run("section search keeps the heading path", func(t *testing.T) {
		results, err := svc.Search(ctx, "levain starter feeding")
		require.NoError(t, err)
		require.NotEmpty(t, results)

		top := results[0]
		assert.Equal(t, "recipes/bread.md", top.ParentID)
		assert.Equal(t, document.TypeNote, top.ParentType)
		assert.Contains(t, strings.Join(top.HeadingPath, " > "), "Starter")
	})

	t.Run("frontmatter metadata is carried to results", func(t *testing.T) {
		results, err := svc.Search(ctx, "dutch oven crust")
		require.NoError(t, err)

		r, ok := resultFor(results, "recipes/bread.md")
		require.True(t, ok)
		assert.Equal(t, "Sourdough Bread", r.Title)
		assert.Equal(t, "https://example.com/bread", r.URL)
		assert.ElementsMatch(t, []string{"baking", "recipes"}, r.Tags)
	})

	t.Run("chat transcripts are searchable", func(t *testing.T) {
		results, err := svc.Search(ctx, "database migration deploy")
		require.NoError(t, err)

		r, ok := resultFor(results, "chats/standup.chat.json")
		require.True(t, ok)
		assert.Equal(t, document.TypeChat, r.ParentType)
		assert.Equal(t, "Monday standup", r.Title)
	})

	t.Run("lexical weight one uses bm25 alone", func(t *testing.T) {
		opts := svc.Ranker.Defaults()
		opts.BM25Weight = 1

		results, err := svc.Rank(ctx, "tomatoes sun", opts)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Zero(t, r.SemanticScore)
			assert.InDelta(t, r.BM25Score, r.HybridScore, 1e-9)
		}
		assert.Equal(t, "garden.md", results[0].ParentID)
	})

	t.Run("results are bounded by the final limit", func(t *testing.T) {
		opts := svc.Ranker.Defaults()
		opts.FinalTopK = 1

		results, err := svc.Rank(ctx, "starter", opts)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestIntegration_IndexSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: an index built and closed
	ctx := context.Background()
	dir := createNotesDir(t)
	svc := openService(t, dir)
	_, err := svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)
	chunkCount := svc.Parents.ChunkCount()
	require.NoError(t, svc.Close())

	// When: a new service opens the same data directory
	svc = openService(t, dir)
	defer func() { _ = svc.Close() }()

	// Then: the indexes are loaded, consistent and searchable without reindexing
	assert.Equal(t, 3, svc.Parents.Len())
	assert.Equal(t, chunkCount, svc.Parents.ChunkCount())

	check, err := svc.Manager.Check(ctx)
	require.NoError(t, err)
	assert.True(t, check.OK(), "inconsistencies: %v", check.Inconsistencies)

	results, err := svc.Search(ctx, "tomatoes basil")
	require.NoError(t, err)
	_, ok := resultFor(results, "garden.md")
	assert.True(t, ok)
}

func TestIntegration_IncrementalUpdateCascadesDeletes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: an indexed notes directory
	ctx := context.Background()
	dir := createNotesDir(t)
	svc := openService(t, dir)
	defer func() { _ = svc.Close() }()
	_, err := svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)

	gardenChunks := svc.Parents.Get("garden.md")
	require.NotEmpty(t, gardenChunks)

	// When: a note is deleted and the index is updated
	require.NoError(t, os.Remove(filepath.Join(dir, "garden.md")))
	stats, err := svc.Manager.IncrementalUpdate(ctx)
	require.NoError(t, err)

	// Then: the parent, its chunks and its embeddings are gone
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 2, stats.Unchanged)
	assert.False(t, svc.Parents.Has("garden.md"))
	for _, id := range gardenChunks {
		exists, err := svc.Chunks.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists, "chunk %s survived its parent", id)
	}

	results, err := svc.Search(ctx, "tomatoes basil")
	require.NoError(t, err)
	_, ok := resultFor(results, "garden.md")
	assert.False(t, ok)
}

func TestIntegration_LexicalOnlyWithoutEmbeddings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: a service whose configuration has no embedding provider
	ctx := context.Background()
	dir := createNotesDir(t)
	writeFile(t, dir, ".cognito.yaml", "embeddings:\n  provider: none\n")
	svc := openServiceWith(t, dir, nil)
	defer func() { _ = svc.Close() }()

	// When: indexing and searching
	stats, err := svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)
	results, err := svc.Search(ctx, "levain starter")
	require.NoError(t, err)

	// Then: nothing is embedded and the lexical channel still answers
	assert.Zero(t, stats.Embedded)
	require.NotEmpty(t, results)
	assert.Equal(t, "recipes/bread.md", results[0].ParentID)
	for _, r := range results {
		assert.Zero(t, r.SemanticScore)
	}
}
