package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/configs"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
)

func TestInitCmd_WritesTemplateThatLoads(t *testing.T) {
	// Given: an empty notes directory
	isolate(t)
	dir := t.TempDir()

	// When: running init
	out, err := execute(t, "init", "--dir", dir)

	// Then: the template is written and loads to the defaults
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	data, err := os.ReadFile(filepath.Join(dir, ".cognito.yaml"))
	require.NoError(t, err)
	assert.Equal(t, configs.ProjectConfigTemplate, string(data))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	defaults := config.NewConfig()
	assert.Equal(t, defaults.Search, cfg.Search)
	assert.Equal(t, defaults.Chunking, cfg.Chunking)
}

func TestInitCmd_PreservesExistingConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	custom := "search:\n  bm25_weight: 0.8\n"
	writeNote(t, dir, ".cognito.yaml", custom)

	out, err := execute(t, "init", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "preserved")
	data, err := os.ReadFile(filepath.Join(dir, ".cognito.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeNote(t, dir, ".cognito.yaml", "search:\n  bm25_weight: 0.8\n")

	_, err := execute(t, "init", "--dir", dir, "--force")

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, ".cognito.yaml"))
	require.NoError(t, err)
	assert.Equal(t, configs.ProjectConfigTemplate, string(data))
}

func TestInitCmd_RegistersMCPServer(t *testing.T) {
	// Given: a .mcp.json with another server
	isolate(t)
	dir := t.TempDir()
	writeNote(t, dir, ".mcp.json", `{"mcpServers":{"other":{"type":"stdio","command":"other","args":[]}}}`)

	// When: running init --mcp
	_, err := execute(t, "init", "--dir", dir, "--mcp")

	// Then: cognito is added next to the existing server
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var cfg MCPConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Contains(t, cfg.MCPServers, "other")
	require.Contains(t, cfg.MCPServers, "cognito")
	entry := cfg.MCPServers["cognito"]
	assert.Equal(t, "stdio", entry.Type)
	assert.Equal(t, []string{"serve", "--dir", dir, "--watch"}, entry.Args)
}

func TestInitCmd_InvalidMCPJSON(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeNote(t, dir, ".mcp.json", "{not json")

	_, err := execute(t, "init", "--dir", dir, "--mcp")

	assert.ErrorContains(t, err, "failed to parse existing .mcp.json")
}
