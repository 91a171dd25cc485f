package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/ui"
)

func TestStatusCmd_JSON(t *testing.T) {
	// Given: an indexed notes directory
	dir := indexedNotes(t)

	// When: requesting status as JSON
	out, err := execute(t, "status", "--json", "--dir", dir)

	// Then: counts match the two notes and nothing is inconsistent
	require.NoError(t, err)
	var info ui.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Equal(t, 2, info.Parents)
	assert.GreaterOrEqual(t, info.Chunks, 2)
	assert.Zero(t, info.Embedded)
	assert.Equal(t, 2, info.LexicalRecords)
	assert.Zero(t, info.Issues)
	assert.Equal(t, "sqlite", info.Storage)
	assert.Greater(t, info.StorageSize, int64(0))
}

func TestStatusCmd_Text(t *testing.T) {
	dir := indexedNotes(t)

	out, err := execute(t, "status", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:    2")
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "Consistent")
}

func TestStatusCmd_RepairOnConsistentIndex(t *testing.T) {
	dir := indexedNotes(t)

	out, err := execute(t, "status", "--repair", "--dir", dir)

	require.NoError(t, err)
	assert.NotContains(t, out, "Repaired")
	assert.Contains(t, out, "Consistent")
}

func TestStatusCmd_NoIndex(t *testing.T) {
	dir := setupNotes(t)

	_, err := execute(t, "status", "--dir", dir)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeNotFound, cerrors.GetCode(err))
}
