package chunk

import (
	"slices"
	"strings"
)

// piece is a chunk body before IDs and headers are assigned.
type piece struct {
	text   string
	path   []string
	kind   Kind
	offset int
}

func (p piece) size() int { return runeLen(p.text) }

const paragraphSep = "\n\n"

// chunkNote splits a cleaned note body into sized pieces.
func (c *Chunker) chunkNote(body string) []piece {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}
	if runeLen(trimmed) < c.opts.MinChunkChars {
		return []piece{{text: trimmed, kind: KindText, offset: strings.Index(body, trimmed)}}
	}

	pieces := c.collect(scan(body))
	pieces = c.mergeForward(pieces)
	pieces = c.mergeBackward(pieces)
	pieces = c.dropUndersized(pieces)
	return c.applyOverlap(body, pieces)
}

// collect folds tokens into pieces, tracking the heading stack and packing
// paragraphs greedily up to the maximum size.
func (c *Chunker) collect(tokens []token) []piece {
	limit := c.opts.MaxChunkChars
	var (
		pieces []piece
		stack  []string
		buf    strings.Builder
		bufLen int
		bufOff int
	)

	flush := func() {
		if bufLen == 0 {
			return
		}
		pieces = append(pieces, piece{text: buf.String(), path: slices.Clone(stack), kind: KindText, offset: bufOff})
		buf.Reset()
		bufLen = 0
	}
	add := func(text string, offset int) {
		n := runeLen(text)
		if bufLen > 0 && bufLen+len(paragraphSep)+n > limit {
			flush()
		}
		if bufLen == 0 {
			bufOff = offset
		} else {
			buf.WriteString(paragraphSep)
			bufLen += len(paragraphSep)
		}
		buf.WriteString(text)
		bufLen += n
	}

	for _, tok := range tokens {
		switch tok.kind {
		case tokHeading:
			flush()
			if len(stack) > tok.level-1 {
				stack = stack[:tok.level-1]
			}
			stack = append(stack, tok.title)
			add(tok.text, tok.start)
		case tokAtomic:
			flush()
			pieces = append(pieces, piece{text: tok.text, path: slices.Clone(stack), kind: tok.block, offset: tok.start})
		default:
			pos := 0
			for _, part := range splitOversized(tok.text, limit) {
				pos = locate(tok.text, part, pos)
				add(part, tok.start+pos)
			}
		}
	}
	flush()
	return pieces
}

// locate finds the byte offset of part in text at or after from. Split
// parts may have collapsed whitespace, so only the first word is matched.
func locate(text, part string, from int) int {
	word := part
	if f := strings.Fields(part); len(f) > 0 {
		word = f[0]
	}
	if i := strings.Index(text[from:], word); i >= 0 {
		return from + i
	}
	return from
}

func samePath(a, b piece) bool { return slices.Equal(a.path, b.path) }

func (c *Chunker) mergeable(a, b piece) bool {
	return samePath(a, b) && a.size()+len(paragraphSep)+b.size() <= c.opts.MaxChunkChars
}

func merge(a, b piece) piece {
	kind := a.kind
	if kind != b.kind {
		kind = KindText
	}
	return piece{text: a.text + paragraphSep + b.text, path: a.path, kind: kind, offset: a.offset}
}

// mergeForward folds each undersized piece into its successor.
func (c *Chunker) mergeForward(pieces []piece) []piece {
	for i := 0; i < len(pieces)-1; {
		if pieces[i].size() < c.opts.MinChunkChars && c.mergeable(pieces[i], pieces[i+1]) {
			pieces[i+1] = merge(pieces[i], pieces[i+1])
			pieces = slices.Delete(pieces, i, i+1)
			continue
		}
		i++
	}
	return pieces
}

// mergeBackward folds remaining undersized pieces into their predecessor.
func (c *Chunker) mergeBackward(pieces []piece) []piece {
	for i := len(pieces) - 1; i > 0; i-- {
		if pieces[i].size() < c.opts.MinChunkChars && c.mergeable(pieces[i-1], pieces[i]) {
			pieces[i-1] = merge(pieces[i-1], pieces[i])
			pieces = slices.Delete(pieces, i, i+1)
		}
	}
	return pieces
}

// dropUndersized removes pieces that are still below the minimum, unless
// that would leave the document without chunks.
func (c *Chunker) dropUndersized(pieces []piece) []piece {
	if len(pieces) <= 1 {
		return pieces
	}
	kept := make([]piece, 0, len(pieces))
	for _, p := range pieces {
		if p.size() >= c.opts.MinChunkChars {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return pieces
	}
	return kept
}

// applyOverlap prefixes text pieces with the word-aligned tail of the
// preceding text piece in the same section when it fits. The offset of a
// prefixed piece moves back to where the tail starts in body.
func (c *Chunker) applyOverlap(body string, pieces []piece) []piece {
	n := c.opts.OverlapChars
	if n <= 0 || len(pieces) < 2 {
		return pieces
	}
	out := slices.Clone(pieces)
	for i := 1; i < len(out); i++ {
		prev, cur := pieces[i-1], out[i]
		if prev.kind != KindText || cur.kind != KindText || !samePath(prev, cur) {
			continue
		}
		tail := tailWords(prev.text, n)
		if tail == "" || runeLen(tail)+len(paragraphSep)+cur.size() > c.opts.MaxChunkChars {
			continue
		}
		out[i].text = tail + paragraphSep + cur.text
		out[i].offset = overlapOffset(body, prev.offset, cur.offset, tail)
	}
	return out
}

// overlapOffset returns the last position of tail in body between the two
// pieces. A tail that spans a merge join is not verbatim in body; the
// offset then moves back by the prefix length.
func overlapOffset(body string, prevOffset, curOffset int, tail string) int {
	if curOffset <= len(body) {
		if i := strings.LastIndex(body[:curOffset], tail); i >= prevOffset {
			return i
		}
	}
	return max(prevOffset, curOffset-len(tail)-len(paragraphSep))
}
