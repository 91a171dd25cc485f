package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMemory_ListIsSortedAndGetReportsNotFound(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(Document{ID: "b"}, Document{ID: "a"})
	src.Put(Document{ID: "c"})
	src.Delete("b")

	docs, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)

	_, err = src.Get(ctx, "b")
	assert.Equal(t, cerrors.ErrCodeNotFound, cerrors.GetCode(err))
}

func TestParseFile_MarkdownFrontmatter(t *testing.T) {
	// Given: a note with frontmatter
	content := "---\ntitle: Garden plan\ntags: [spring, veg]\nurl: https://example.com/g\n---\n# Ignored heading\n\nBody text.\n"

	// When: parsing
	doc := ParseFile("notes/garden.md", []byte(content), 42)

	// Then: metadata comes from the frontmatter and the body excludes it
	assert.Equal(t, "notes/garden.md", doc.ID)
	assert.Equal(t, TypeNote, doc.Type)
	assert.Equal(t, ContentMarkdown, doc.ContentType)
	assert.Equal(t, "Garden plan", doc.Title)
	assert.Equal(t, []string{"spring", "veg"}, doc.Tags)
	assert.Equal(t, "https://example.com/g", doc.URL)
	assert.Equal(t, int64(42), doc.LastUpdatedAt)
	assert.NotContains(t, doc.Content, "title:")
	assert.Contains(t, doc.Content, "Body text.")
}

func TestParseFile_TitleFallbacks(t *testing.T) {
	doc := ParseFile("a/b.md", []byte("# Heading Title\n\ntext"), 0)
	assert.Equal(t, "Heading Title", doc.Title)

	doc = ParseFile("a/plain.txt", []byte("just text"), 0)
	assert.Equal(t, "plain", doc.Title)
	assert.Equal(t, ContentText, doc.ContentType)

	doc = ParseFile("c.md", []byte("---\ntags: one, two\n---\nno heading"), 0)
	assert.Equal(t, "c", doc.Title)
	assert.Equal(t, []string{"one", "two"}, doc.Tags)
}

func TestParseFile_Chat(t *testing.T) {
	content := `{"title":"Trip","turns":[{"role":"user","content":"Where to?","timestamp":1000},{"role":"assistant","content":"Lisbon.","timestamp":2000}]}`

	doc := ParseFile("chats/trip.chat.json", []byte(content), 7)

	assert.Equal(t, TypeChat, doc.Type)
	assert.Equal(t, "Trip", doc.Title)
	require.Len(t, doc.Turns, 2)
	assert.Equal(t, "user: Where to?\n\nassistant: Lisbon.", doc.Content)
}

func TestParseFile_MalformedChatBecomesJSONNote(t *testing.T) {
	doc := ParseFile("chats/broken.chat.json", []byte(`{"turns": [`), 0)

	assert.Equal(t, TypeNote, doc.Type)
	assert.Equal(t, ContentJSON, doc.ContentType)
	assert.Equal(t, "broken", doc.Title)
}

func TestFS_ListAppliesIncludeAndExclude(t *testing.T) {
	// Given: a notes tree with excluded and non-matching files
	root := t.TempDir()
	writeFile(t, root, "a.md", "# A\n\nalpha")
	writeFile(t, root, "sub/b.txt", "beta")
	writeFile(t, root, "sub/c.png", "not included")
	writeFile(t, root, ".git/config", "excluded dir")
	writeFile(t, root, "drafts/d.md", "excluded by pattern")

	src, err := NewFS(root, FSOptions{
		Include: []string{"**/*.md", "**/*.txt"},
		Exclude: []string{"**/.git/**", "drafts/**"},
	})
	require.NoError(t, err)

	// When: listing
	docs, err := src.List(context.Background())

	// Then: only matching documents are returned, sorted by id
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
		assert.NotZero(t, d.LastUpdatedAt)
	}
	assert.Equal(t, []string{"a.md", "sub/b.txt"}, ids)

	got, err := src.Get(context.Background(), "sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Content)

	_, err = src.Get(context.Background(), "missing.md")
	assert.Equal(t, cerrors.ErrCodeNotFound, cerrors.GetCode(err))
	_, err = src.Get(context.Background(), "drafts/d.md")
	assert.Equal(t, cerrors.ErrCodeNotFound, cerrors.GetCode(err))
}

func TestFS_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bin.txt", "abc\x00def")
	writeFile(t, root, "ok.txt", "fine")

	src, err := NewFS(root, FSOptions{})
	require.NoError(t, err)
	docs, err := src.List(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok.txt", docs[0].ID)
}

func TestNewFS_RejectsInvalidPattern(t *testing.T) {
	_, err := NewFS(t.TempDir(), FSOptions{Include: []string{"[unclosed"}})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigInvalid, cerrors.GetCode(err))
}

func TestFS_MissingRootFails(t *testing.T) {
	src, err := NewFS(filepath.Join(t.TempDir(), "nope"), FSOptions{})
	require.NoError(t, err)

	_, err = src.List(context.Background())
	assert.Error(t, err)
}
