// Package integration exercises the retrieval core end to end over a real
// notes directory and a sqlite data directory.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
)

const testDimensions = 256

var breadNote = `---
title: Sourdough Bread
tags: [baking, recipes]
url: https://example.com/bread
---
# Bread

## Starter

Feed the levain starter with equal weights of flour and water every twelve
hours. A healthy starter doubles within six hours and smells pleasantly sour.
Keep it in a loosely covered jar at room temperature between feedings.

## Baking

Preheat the dutch oven for forty five minutes at two hundred and fifty
degrees. Bake covered for twenty minutes, then uncover and bake until the
crust is deeply browned and the loaf sounds hollow when tapped underneath.
`

var gardenNote = `# Garden

Tomatoes need full sun, deep watering twice a week and a stake once the
first trusses appear. Pinch out side shoots so the plant puts its energy
into fruit rather than leaves. Basil planted alongside keeps pests away.
`

var standupChat = `{
  "title": "Monday standup",
  "tags": ["work"],
  "turns": [
    {"role": "user", "content": "The deploy is blocked on the database migration review.", "timestamp": 1700000000000},
    {"role": "assistant", "content": "Ask the platform team to review the migration before noon so the deploy can go out today.", "timestamp": 1700000001000}
  ]
}`

// writeFile creates path under dir with content.
func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// createNotesDir writes a small mixed corpus of notes and a chat transcript.
func createNotesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "recipes/bread.md", breadNote)
	writeFile(t, dir, "garden.md", gardenNote)
	writeFile(t, dir, "chats/standup.chat.json", standupChat)
	writeFile(t, dir, "node_modules/ignored.md", "# Ignored\n\nThis note must never be indexed.\n")
	return dir
}

// openService loads configuration for dir the way the CLI does and opens a
// writable service with the static embedder.
func openService(t *testing.T, dir string) *service.Service {
	t.Helper()
	return openServiceWith(t, dir, embed.NewStaticEmbedder(testDimensions))
}

// openServiceWith opens a service using embedder, or the configured provider
// when embedder is nil.
func openServiceWith(t *testing.T, dir string, embedder embed.Embedder) *service.Service {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{"COGNITO_NOTES_DIR", "COGNITO_DATA_DIR", "COGNITO_EMBEDDINGS_PROVIDER", "COGNITO_SEMANTIC_BACKEND"} {
		t.Setenv(name, "")
	}

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	svc, err := service.New(context.Background(), service.Options{
		Config:   cfg,
		Embedder: embedder,
	})
	require.NoError(t, err)
	return svc
}

// resultFor returns the first result whose parent is parentID.
func resultFor(results []search.HybridResult, parentID string) (search.HybridResult, bool) {
	for _, r := range results {
		if r.ParentID == parentID {
			return r, true
		}
	}
	return search.HybridResult{}, false
}
