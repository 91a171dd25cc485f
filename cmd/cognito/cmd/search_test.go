package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
)

func indexedNotes(t *testing.T) string {
	t.Helper()
	dir := setupNotes(t)
	_, err := execute(t, "index", "--plain", "--dir", dir)
	require.NoError(t, err)
	return dir
}

func TestSearchCmd_JSON(t *testing.T) {
	// Given: an indexed notes directory
	dir := indexedNotes(t)

	// When: searching with --json
	out, err := execute(t, "search", "sourdough", "starter", "--json", "--dir", dir)

	// Then: the kitchen note ranks first on lexical score alone
	require.NoError(t, err)
	var got searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "sourdough starter", got.Query)
	require.NotEmpty(t, got.Results)
	assert.Equal(t, len(got.Results), got.Count)
	top := got.Results[0]
	assert.Equal(t, "kitchen.md", top.ParentID)
	assert.Contains(t, top.Content, "Sourdough")
	assert.Greater(t, top.BM25Score, 0.0)
	assert.Zero(t, top.SemanticScore)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	dir := indexedNotes(t)

	out, err := execute(t, "search", "tomatoes", "--dir", dir, "--limit", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "note://garden.md")
	assert.NotContains(t, out, "2. ")
}

func TestSearchCmd_NoResults(t *testing.T) {
	dir := indexedNotes(t)

	out, err := execute(t, "search", "zeppelin", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, `No results for "zeppelin"`)
}

func TestSearchCmd_NoIndex(t *testing.T) {
	dir := setupNotes(t)

	_, err := execute(t, "search", "tomatoes", "--dir", dir)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeNotFound, cerrors.GetCode(err))
}

func TestSearchCmd_InvalidFlags(t *testing.T) {
	dir := indexedNotes(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "weight above one", args: []string{"--lexical-weight", "1.5"}},
		{name: "negative weight", args: []string{"--lexical-weight", "-0.1"}},
		{name: "zero limit", args: []string{"--limit", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "tomatoes", "--dir", dir}, tt.args...)

			_, err := execute(t, args...)

			require.Error(t, err)
			assert.Equal(t, cerrors.ErrCodeInvalidInput, cerrors.GetCode(err))
		})
	}
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	dir := indexedNotes(t)

	_, err := execute(t, "search", "--dir", dir)

	assert.Error(t, err)
}

func TestResultFormatting(t *testing.T) {
	r := search.HybridResult{
		ParentID:    "chats/standup.json",
		ParentType:  document.TypeChat,
		Title:       "Standup",
		HeadingPath: []string{"Monday", "Blockers"},
		Tags:        []string{"work", "daily"},
		BM25Score:   0.5,
	}

	assert.Equal(t, "Standup > Monday > Blockers", resultHeading(r))
	assert.Equal(t, "note://chats/standup.json · chat · bm25 0.500 · semantic 0.000 · #work #daily", resultDetail(r))

	r.Title = ""
	r.HeadingPath = nil
	assert.Equal(t, "chats/standup.json", resultHeading(r))
}
