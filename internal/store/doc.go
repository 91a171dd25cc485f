// Package store persists chunk records, their embeddings and the
// parent-to-chunk index on top of a kv.Store.
//
// Key layout:
//
//	chunk:<chunkId>        JSON chunk record without embedding
//	embedding:<chunkId>    little-endian float32 vector
//	parent_chunk_index     JSON map of parent id to ordered chunk ids
package store
