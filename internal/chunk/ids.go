package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

// Chunk ID prefixes.
const (
	notePrefix = "notechunk_"
	chatPrefix = "msgchunk_"
)

// NoteChunkID returns the ID of the seq-th chunk of a note.
func NoteChunkID(parentID string, seq int) string {
	return fmt.Sprintf("%s%s_%d", notePrefix, parentID, seq)
}

// ChatChunkID returns the ID of a chunk of the turn group starting at turnIndex.
func ChatChunkID(parentID string, turnIndex int, timestamp int64, role string, seq int) string {
	return fmt.Sprintf("%s%s_t%d_%d_%s_%d", chatPrefix, parentID, turnIndex, timestamp, sanitizeRole(role), seq)
}

// sanitizeRole keeps IDs parseable when roles contain separators.
func sanitizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || r == ' ' {
			return '-'
		}
		return r
	}, role)
}

// ID is a parsed chunk identifier.
type ID struct {
	ParentID   string
	ParentType document.Type
	Seq        int

	// Chat chunks only.
	TurnIndex int
	Timestamp int64
	Role      string
}

// ParseID splits a chunk ID into its parts. Parent IDs may contain
// underscores, so parsing works from the right.
func ParseID(id string) (ID, error) {
	switch {
	case strings.HasPrefix(id, notePrefix):
		rest := strings.TrimPrefix(id, notePrefix)
		i := strings.LastIndexByte(rest, '_')
		if i <= 0 {
			return ID{}, fmt.Errorf("malformed note chunk id %q", id)
		}
		seq, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return ID{}, fmt.Errorf("malformed note chunk id %q: %w", id, err)
		}
		return ID{ParentID: rest[:i], ParentType: document.TypeNote, Seq: seq}, nil

	case strings.HasPrefix(id, chatPrefix):
		parts := strings.Split(strings.TrimPrefix(id, chatPrefix), "_")
		if len(parts) < 5 {
			return ID{}, fmt.Errorf("malformed chat chunk id %q", id)
		}
		n := len(parts)
		seq, err := strconv.Atoi(parts[n-1])
		if err != nil {
			return ID{}, fmt.Errorf("malformed chat chunk id %q: %w", id, err)
		}
		ts, err := strconv.ParseInt(parts[n-3], 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("malformed chat chunk id %q: %w", id, err)
		}
		if !strings.HasPrefix(parts[n-4], "t") {
			return ID{}, fmt.Errorf("malformed chat chunk id %q", id)
		}
		turn, err := strconv.Atoi(parts[n-4][1:])
		if err != nil {
			return ID{}, fmt.Errorf("malformed chat chunk id %q: %w", id, err)
		}
		return ID{
			ParentID:   strings.Join(parts[:n-4], "_"),
			ParentType: document.TypeChat,
			Seq:        seq,
			TurnIndex:  turn,
			Timestamp:  ts,
			Role:       parts[n-2],
		}, nil
	}
	return ID{}, fmt.Errorf("unknown chunk id prefix %q", id)
}
