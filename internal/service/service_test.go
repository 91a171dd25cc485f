package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/lexical"
)

func testDocs() *document.Memory {
	return document.NewMemory(
		document.Document{
			ID: "garden", Type: document.TypeNote, Title: "Garden", ContentType: document.ContentMarkdown,
			Content: "# Garden\n\nTomatoes need full sun and regular watering.", LastUpdatedAt: 1,
		},
		document.Document{
			ID: "kitchen", Type: document.TypeNote, Title: "Kitchen", ContentType: document.ContentMarkdown,
			Content: "# Kitchen\n\nSourdough starter is fed twice a day.", LastUpdatedAt: 1,
		},
	)
}

func TestService_IndexAndSearchInMemory(t *testing.T) {
	// Given: a service over an in-memory store with the static embedder
	ctx := context.Background()
	svc, err := New(ctx, Options{
		Config:   config.NewConfig(),
		Store:    kv.NewMemory(),
		Embedder: embed.NewStaticEmbedder(64),
		Source:   testDocs(),
	})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	// When: indexed and searched
	stats, err := svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)
	results, err := svc.Search(ctx, "sourdough starter")

	// Then: the kitchen note ranks first with its metadata
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Embedded)
	require.NotEmpty(t, results)
	assert.Equal(t, "kitchen", results[0].ParentID)
	assert.Equal(t, "Kitchen", results[0].Title)
	assert.Contains(t, results[0].Content, "Sourdough")
}

func TestService_UnconfiguredEmbeddingsFallBackToLexical(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, Options{Store: kv.NewMemory(), Source: testDocs()})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.False(t, embed.IsConfigured(svc.Embedder))
	_, err = svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "tomatoes")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "garden", results[0].ParentID)
	assert.Zero(t, results[0].SemanticScore)
}

func TestService_SQLitePersistsAcrossRestarts(t *testing.T) {
	// Given: a sqlite-backed service that indexed two notes
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	svc, err := New(ctx, Options{Config: cfg, Embedder: embed.NewStaticEmbedder(32), Source: testDocs()})
	require.NoError(t, err)
	_, err = svc.Manager.FullRebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, err = os.Stat(filepath.Join(cfg.Storage.DataDir, DatabaseFile))
	require.NoError(t, err)

	// When: reopened
	svc, err = New(ctx, Options{Config: cfg, Embedder: embed.NewStaticEmbedder(32), Source: testDocs()})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	// Then: the parent and lexical indexes are restored
	assert.Equal(t, 2, svc.Parents.Len())
	assert.Equal(t, 2, svc.Lexical.Len())
	results, err := svc.Search(ctx, "tomatoes")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "garden", results[0].ParentID)
}

func TestService_SecondWriterIsLocked(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	first, err := New(ctx, Options{Config: cfg, Source: testDocs()})
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	_, err = New(ctx, Options{Config: cfg, Source: testDocs()})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeLocked, cerrors.GetCode(err))

	reader, err := New(ctx, Options{Config: cfg, Source: testDocs(), ReadOnly: true})
	require.NoError(t, err)
	assert.NoError(t, reader.Close())
}

func TestService_UnknownStorageBackend(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.Backend = "etcd"

	_, err := New(context.Background(), Options{Config: cfg, Source: testDocs()})

	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestService_ReadOnlySearchDoesNotWriteStore(t *testing.T) {
	// Given: a store whose lexical index is only in unconsolidated form
	ctx := context.Background()
	store := kv.NewMemory()
	snap := `{"version":2,"sequence":1,"consolidated":false,"changes":1,` +
		`"records":[{"id":"garden","title":"Garden","content":"Tomatoes need full sun"}]}`
	require.NoError(t, store.Set(ctx, lexical.UnconsolidatedKey, []byte(snap)))
	before, err := store.Keys(ctx)
	require.NoError(t, err)

	// When: a read-only service searches and closes
	svc, err := New(ctx, Options{Store: store, Source: testDocs(), ReadOnly: true})
	require.NoError(t, err)
	_, err = svc.Search(ctx, "tomatoes")
	require.NoError(t, err)
	hits, err := svc.Lexical.Search(ctx, "tomatoes", 5)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	// Then: the lexical index answered from memory and the keys are unchanged
	require.Len(t, hits, 1)
	assert.Equal(t, "garden", hits[0].ID)
	after, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
