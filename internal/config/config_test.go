package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return t.TempDir()
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 150, cfg.Chunking.MinChunkChars)
	assert.Equal(t, 2000, cfg.Chunking.MaxChunkChars)
	assert.True(t, cfg.Chunking.IncludeHeaders)
	assert.False(t, cfg.Chunking.UseContextualSummaries)
	assert.Equal(t, 5, cfg.Lexical.ConsolidateThreshold)
	assert.Greater(t, cfg.Lexical.ContentWeight, cfg.Lexical.TitleWeight)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, "scan", cfg.Semantic.Backend)
	assert.Equal(t, "", cfg.Embeddings.Provider)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Contains(t, cfg.Sources.Include, "**/*.md")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLProjectConfigOverridesDefaults(t *testing.T) {
	// Given: a project config that sets some values, including an explicit zero
	dir := isolate(t)
	yaml := `
chunking:
  min_chunk_chars: 100
search:
  bm25_weight: 0
embeddings:
  provider: ollama
  model: mxbai-embed-large
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.yaml"), []byte(yaml), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: file values win, untouched keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Chunking.MinChunkChars)
	assert.Equal(t, 2000, cfg.Chunking.MaxChunkChars)
	assert.Equal(t, 0.0, cfg.Search.BM25Weight)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "mxbai-embed-large", cfg.Embeddings.Model)
	assert.Equal(t, filepath.Join(dir, ".cognito"), cfg.Storage.DataDir)
}

func TestLoad_TOMLProjectConfig(t *testing.T) {
	dir := isolate(t)
	toml := `
[lexical]
title_weight = 0.1
consolidate_threshold = 3

[semantic]
backend = "hnsw"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.toml"), []byte(toml), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Lexical.TitleWeight)
	assert.Equal(t, 3, cfg.Lexical.ConsolidateThreshold)
	assert.Equal(t, "hnsw", cfg.Semantic.Backend)
	assert.Equal(t, 1.0, cfg.Lexical.ContentWeight)
}

func TestLoad_YAMLTakesPrecedenceOverTOML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.yaml"), []byte("search:\n  final_top_k: 7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.toml"), []byte("[search]\nfinal_top_k = 3\n"), 0o644))

	assert.Equal(t, filepath.Join(dir, ".cognito.yaml"), FindProjectConfig(dir))
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.FinalTopK)
}

func TestLoad_EnvOverridesHighestPrecedence(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.yaml"), []byte("search:\n  bm25_weight: 0.9\n"), 0o644))
	t.Setenv("COGNITO_BM25_WEIGHT", "0.25")
	t.Setenv("COGNITO_EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Search.BM25Weight)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "sk-test", cfg.Embeddings.APIKey)
	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cognito.yaml"), []byte("chunking: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min exceeds max", func(c *Config) { c.Chunking.MinChunkChars = 5000 }},
		{"overlap too large", func(c *Config) { c.Chunking.OverlapChars = 2000 }},
		{"weight above one", func(c *Config) { c.Search.BM25Weight = 1.5 }},
		{"unknown backend", func(c *Config) { c.Semantic.Backend = "faiss" }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "llama" }},
		{"bad duration", func(c *Config) { c.Lexical.Debounce = "soon" }},
		{"zero threshold", func(c *Config) { c.Lexical.ConsolidateThreshold = 0 }},
		{"context below buffer", func(c *Config) { c.Chunking.ContextLength = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration_FallsBack(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, Duration("500ms", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("nope", time.Second))
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	dir := isolate(t)
	cfg := NewConfig()
	cfg.Search.FinalTopK = 42

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".cognito.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.FinalTopK)
}
