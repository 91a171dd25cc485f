package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		out, err := execute(t, "version")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "cognito "))
		assert.Contains(t, out, "commit:")
	})

	t.Run("short", func(t *testing.T) {
		out, err := execute(t, "version", "--short")

		require.NoError(t, err)
		assert.Equal(t, version.Version+"\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "version", "--json")

		require.NoError(t, err)
		var info version.BuildInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, version.Version, info.Version)
		assert.NotEmpty(t, info.GoVersion)
	})
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Equal(t, "cognito version "+version.Version+"\n", out)
}
