package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_SyncsChanges(t *testing.T) {
	// Given: a notes directory watched by polling with a short debounce
	dir := setupNotes(t)
	writeNote(t, dir, ".cognito.yaml", "watch:\n  debounce: 20ms\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"watch", "--dir", dir, "--poll", "--interval", "20ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return containsAll(out.String(), "Indexed 2 documents", "Watching")
	}, 5*time.Second, 10*time.Millisecond)

	// When: a note is written repeatedly until the watcher reports it
	n := 0
	require.Eventually(t, func() bool {
		n++
		content := fmt.Sprintf("# Pantry\n\nFlour restock number %d.\n", n)
		_ = os.WriteFile(filepath.Join(dir, "pantry.md"), []byte(content), 0o644)
		return containsAll(out.String(), "updated")
	}, 10*time.Second, 50*time.Millisecond)

	// Then: cancelling the context stops the command cleanly
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Contains(t, out.String(), "(polling)")
}

func TestWatchCmd_RejectsArgs(t *testing.T) {
	dir := setupNotes(t)

	_, err := execute(t, "watch", "--dir", dir, "extra")

	assert.Error(t, err)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
