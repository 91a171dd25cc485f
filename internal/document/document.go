// Package document defines the source units the retrieval core indexes and
// the sources that enumerate them.
package document

import (
	"context"
	"sort"
	"sync"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// Type distinguishes notes from chat transcripts.
type Type string

const (
	TypeNote Type = "note"
	TypeChat Type = "chat"
)

// ContentType describes how Content is encoded.
type ContentType string

const (
	ContentMarkdown ContentType = "markdown"
	ContentText     ContentType = "text"
	ContentJSON     ContentType = "json"
)

// Turn is one message of a chat transcript.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Document is an externally owned unit of text.
type Document struct {
	ID            string
	Type          Type
	Title         string
	Content       string
	ContentType   ContentType
	Tags          []string
	URL           string
	Description   string
	LastUpdatedAt int64 // unix millis
	Turns         []Turn
}

// Source enumerates documents. The core only reads from it.
type Source interface {
	// List returns every live document, ordered by ID.
	List(ctx context.Context) ([]Document, error)

	// Get returns one document or an ErrCodeNotFound error.
	Get(ctx context.Context, id string) (Document, error)
}

// Memory is a Source backed by a map. Hosts that own their documents in
// process push them here.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ Source = (*Memory)(nil)

// NewMemory creates a Memory source holding docs.
func NewMemory(docs ...Document) *Memory {
	m := &Memory{docs: make(map[string]Document, len(docs))}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

// Put inserts or replaces a document.
func (m *Memory) Put(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
}

// Delete removes a document.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
}

// List implements Source.
func (m *Memory) List(_ context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements Source.
func (m *Memory) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[id]
	if !ok {
		return Document{}, cerrors.NotFound("document", id)
	}
	return d, nil
}
