package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/kv"
)

// Key prefixes.
const (
	ChunkPrefix     = "chunk:"
	EmbeddingPrefix = "embedding:"
)

// ChunkKey returns the key of a chunk record.
func ChunkKey(id string) string { return ChunkPrefix + id }

// EmbeddingKey returns the key of a chunk embedding.
func EmbeddingKey(id string) string { return EmbeddingPrefix + id }

// Chunks reads and writes chunk records and embeddings.
type Chunks struct {
	kv kv.Store
}

// NewChunks creates a chunk store over s.
func NewChunks(s kv.Store) *Chunks {
	return &Chunks{kv: s}
}

// KV returns the underlying store.
func (c *Chunks) KV() kv.Store { return c.kv }

// Put writes chunk records, and embeddings for chunks that carry one, in a
// single batch.
func (c *Chunks) Put(ctx context.Context, chunks []chunk.Chunk) error {
	entries := make(map[string][]byte, 2*len(chunks))
	for i := range chunks {
		ch := &chunks[i]
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %s: %w", ch.ID, err)
		}
		entries[ChunkKey(ch.ID)] = data
		if len(ch.Embedding) > 0 {
			entries[EmbeddingKey(ch.ID)] = EncodeVector(ch.Embedding)
		}
	}
	if err := kv.SetMany(ctx, c.kv, entries); err != nil {
		return cerrors.IOError("failed to store chunks", err)
	}
	return nil
}

// Get returns the chunk record, without its embedding, or a NotFound error.
func (c *Chunks) Get(ctx context.Context, id string) (chunk.Chunk, error) {
	data, err := c.kv.Get(ctx, ChunkKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return chunk.Chunk{}, cerrors.NotFound("chunk", id)
		}
		return chunk.Chunk{}, cerrors.IOError("failed to read chunk", err)
	}
	var ch chunk.Chunk
	if err := json.Unmarshal(data, &ch); err != nil {
		return chunk.Chunk{}, cerrors.New(cerrors.ErrCodeParseFailed, "failed to decode chunk "+id, err)
	}
	return ch, nil
}

// GetMany returns the chunks that exist among ids, keyed by id.
func (c *Chunks) GetMany(ctx context.Context, ids []string) (map[string]chunk.Chunk, error) {
	out := make(map[string]chunk.Chunk, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		ch, err := c.Get(ctx, id)
		if err != nil {
			if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = ch
	}
	return out, nil
}

// Exists reports whether a chunk record is stored.
func (c *Chunks) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.kv.Get(ctx, ChunkKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Embedding returns the stored vector of a chunk, or a NotFound error.
func (c *Chunks) Embedding(ctx context.Context, id string) ([]float32, error) {
	data, err := c.kv.Get(ctx, EmbeddingKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, cerrors.NotFound("embedding", id)
		}
		return nil, cerrors.IOError("failed to read embedding", err)
	}
	return DecodeVector(data)
}

// ForEachEmbedding calls fn for every stored embedding in ascending chunk id
// order. Undecodable vectors are skipped.
func (c *Chunks) ForEachEmbedding(ctx context.Context, fn func(id string, vec []float32) error) error {
	keys, err := kv.KeysWithPrefix(ctx, c.kv, EmbeddingPrefix)
	if err != nil {
		return cerrors.IOError("failed to list embeddings", err)
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := c.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				continue
			}
			return cerrors.IOError("failed to read embedding", err)
		}
		vec, err := DecodeVector(data)
		if err != nil {
			continue
		}
		if err := fn(strings.TrimPrefix(key, EmbeddingPrefix), vec); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns every stored chunk id in ascending order.
func (c *Chunks) IDs(ctx context.Context) ([]string, error) {
	keys, err := kv.KeysWithPrefix(ctx, c.kv, ChunkPrefix)
	if err != nil {
		return nil, cerrors.IOError("failed to list chunks", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, ChunkPrefix)
	}
	return ids, nil
}

// EmbeddingCount returns the number of stored embeddings.
func (c *Chunks) EmbeddingCount(ctx context.Context) (int, error) {
	keys, err := kv.KeysWithPrefix(ctx, c.kv, EmbeddingPrefix)
	if err != nil {
		return 0, cerrors.IOError("failed to list embeddings", err)
	}
	return len(keys), nil
}

// Delete removes the records and embeddings of ids.
func (c *Chunks) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		keys = append(keys, ChunkKey(id), EmbeddingKey(id))
	}
	if err := kv.RemoveMany(ctx, c.kv, keys); err != nil {
		return cerrors.IOError("failed to delete chunks", err)
	}
	return nil
}

// Clear removes every chunk record and embedding.
func (c *Chunks) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys(ctx)
	if err != nil {
		return cerrors.IOError("failed to list keys", err)
	}
	var doomed []string
	for _, k := range keys {
		if strings.HasPrefix(k, ChunkPrefix) || strings.HasPrefix(k, EmbeddingPrefix) {
			doomed = append(doomed, k)
		}
	}
	if err := kv.RemoveMany(ctx, c.kv, doomed); err != nil {
		return cerrors.IOError("failed to clear chunks", err)
	}
	return nil
}
