package mcp

import (
	"context"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/index"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
)

type mockSearcher struct {
	results  []search.HybridResult
	err      error
	query    string
	lastOpts search.Options
}

func (m *mockSearcher) Rank(_ context.Context, query string, opts search.Options) ([]search.HybridResult, error) {
	m.query = query
	m.lastOpts = opts
	return m.results, m.err
}

type mockStatus struct {
	status index.Status
	err    error
}

func (m *mockStatus) Status(context.Context) (index.Status, error) {
	return m.status, m.err
}

type mockChunks map[string]chunk.Chunk

func (m mockChunks) Get(_ context.Context, id string) (chunk.Chunk, error) {
	c, ok := m[id]
	if !ok {
		return chunk.Chunk{}, cerrors.NotFound("chunk", id)
	}
	return c, nil
}
