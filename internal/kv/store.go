// Package kv defines the persistent key-value store every index and chunk
// record is written through, with in-memory and SQLite implementations.
package kv

import (
	"context"
	"sort"
	"strings"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = cerrors.ErrNotFound

// Store is a string-keyed store of opaque values.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns every key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// Batcher is implemented by stores that can apply many writes atomically.
type Batcher interface {
	SetMany(ctx context.Context, entries map[string][]byte) error
	RemoveMany(ctx context.Context, keys []string) error
}

// SetMany writes all entries, in one transaction when the store supports it.
func SetMany(ctx context.Context, s Store, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.SetMany(ctx, entries)
	}
	for _, k := range sortedKeys(entries) {
		if err := s.Set(ctx, k, entries[k]); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMany removes all keys, in one transaction when the store supports it.
func RemoveMany(ctx context.Context, s Store, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if b, ok := s.(Batcher); ok {
		return b.RemoveMany(ctx, keys)
	}
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// KeysWithPrefix returns the sorted keys that start with prefix.
func KeysWithPrefix(ctx context.Context, s Store, prefix string) ([]string, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
