package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSession_WritesRequestedProfiles(t *testing.T) {
	// Given: all three profiles requested
	dir := t.TempDir()
	paths := Paths{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	require.True(t, paths.Enabled())

	// When: a session runs some work and stops
	s, err := Start(paths)
	require.NoError(t, err)
	sum := 0
	for i := range 1_000_000 {
		sum += i
	}
	_ = sum
	require.NoError(t, s.Stop())

	// Then: every file exists with content
	nonEmpty(t, paths.CPU)
	nonEmpty(t, paths.Heap)
	nonEmpty(t, paths.Trace)
}

func TestSession_StopIsIdempotent(t *testing.T) {
	s, err := Start(Paths{Heap: filepath.Join(t.TempDir(), "heap.prof")})
	require.NoError(t, err)

	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())

	var nilSession *Session
	assert.NoError(t, nilSession.Stop())
}

func TestStart_BadPath(t *testing.T) {
	_, err := Start(Paths{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")})

	assert.ErrorContains(t, err, "failed to create CPU profile file")
}

func TestPaths_EnabledWhenEmpty(t *testing.T) {
	assert.False(t, Paths{}.Enabled())
}

func TestHeapInUse(t *testing.T) {
	assert.Greater(t, HeapInUse(), uint64(0))
}
