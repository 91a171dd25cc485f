package chunk

import (
	"strings"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
)

// turnGroup is a user turn followed by the replies to it.
type turnGroup struct {
	index int
	turns []document.Turn
}

// groupTurns starts a new group at every user turn. Leading non-user turns
// form their own group.
func groupTurns(turns []document.Turn) []turnGroup {
	var groups []turnGroup
	for i, t := range turns {
		if len(groups) == 0 || strings.EqualFold(t.Role, "user") {
			groups = append(groups, turnGroup{index: i})
		}
		g := &groups[len(groups)-1]
		g.turns = append(g.turns, t)
	}
	return groups
}

// chunkChat emits one chunk per turn group, splitting groups that exceed
// the maximum size. Offsets refer to the rendered transcript.
func (c *Chunker) chunkChat(doc document.Document) []Chunk {
	header := c.header(doc)
	var chunks []Chunk
	offset := 0
	for gi, g := range groupTurns(doc.Turns) {
		if gi > 0 {
			offset += len(paragraphSep)
		}
		text := document.RenderTurns(g.turns)
		first := g.turns[0]

		parts := []string{text}
		if runeLen(text) > c.opts.MaxChunkChars {
			parts = pack(strings.Split(text, paragraphSep), paragraphSep, c.opts.MaxChunkChars, func(s string) []string {
				return splitOversized(s, c.opts.MaxChunkChars)
			})
		}

		pos := 0
		for seq, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			pos = locate(text, part, pos)
			id := ChatChunkID(doc.ID, g.index, first.Timestamp, first.Role, seq)
			chunks = append(chunks, c.newChunk(doc, id, header, piece{text: part, kind: KindChat, offset: offset + pos}))
		}
		offset += len(text)
	}
	return chunks
}
