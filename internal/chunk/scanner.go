package chunk

import (
	"regexp"
	"strings"
)

// Markdown patterns recognised by the line scanner.
var (
	// headingPattern matches ATX headings with up to three spaces of indent.
	headingPattern = regexp.MustCompile(`^ {0,3}(#{1,6})[ \t]+(.*?)[ \t]*#*[ \t]*$`)

	// fencePattern matches an opening code fence and captures the fence run.
	fencePattern = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")

	// listItemPattern matches bullet and ordered list items.
	listItemPattern = regexp.MustCompile(`^ {0,3}([-*+]|\d{1,9}[.)])[ \t]+\S`)

	// tableRowPattern matches a pipe table row.
	tableRowPattern = regexp.MustCompile(`^ {0,3}\|`)

	// commentPattern matches HTML comments, including multi-line ones.
	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
)

type tokenKind int

const (
	tokParagraph tokenKind = iota
	tokHeading
	tokAtomic
)

// token is a block-level unit of a markdown document.
type token struct {
	kind  tokenKind
	level int    // heading level
	title string // heading text
	block Kind   // atomic block kind
	text  string
	start int // byte offset in the scanned content
}

type line struct {
	text  string
	start int
}

func splitLines(content string) []line {
	var lines []line
	start := 0
	for start <= len(content) {
		end := strings.IndexByte(content[start:], '\n')
		if end < 0 {
			lines = append(lines, line{text: strings.TrimSuffix(content[start:], "\r"), start: start})
			break
		}
		lines = append(lines, line{text: strings.TrimSuffix(content[start:start+end], "\r"), start: start})
		start += end + 1
	}
	return lines
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func isIndented(s string) bool {
	return strings.HasPrefix(s, "  ") || strings.HasPrefix(s, "\t")
}

// scan tokenises content in a single pass over its lines. Fenced code,
// pipe tables and lists become atomic tokens; other non-blank runs
// become paragraphs.
func scan(content string) []token {
	lines := splitLines(content)
	var tokens []token

	para := -1 // index of the first line of the open paragraph
	flush := func(end int) {
		if para < 0 {
			return
		}
		tokens = append(tokens, makeToken(content, lines, para, end, tokParagraph, ""))
		para = -1
	}

	for i := 0; i < len(lines); {
		l := lines[i].text

		if isBlank(l) {
			flush(i)
			i++
			continue
		}

		if m := fencePattern.FindStringSubmatch(l); m != nil {
			flush(i)
			end := closeFence(lines, i, m[1])
			tokens = append(tokens, makeToken(content, lines, i, end, tokAtomic, KindCode))
			i = end
			continue
		}

		if m := headingPattern.FindStringSubmatch(l); m != nil {
			flush(i)
			tok := makeToken(content, lines, i, i+1, tokHeading, "")
			tok.level = len(m[1])
			tok.title = strings.TrimSpace(m[2])
			tokens = append(tokens, tok)
			i++
			continue
		}

		if tableRowPattern.MatchString(l) {
			end := i
			for end < len(lines) && tableRowPattern.MatchString(lines[end].text) {
				end++
			}
			if end-i >= 2 {
				flush(i)
				tokens = append(tokens, makeToken(content, lines, i, end, tokAtomic, KindTable))
				i = end
				continue
			}
		}

		if listItemPattern.MatchString(l) {
			flush(i)
			end := closeList(lines, i)
			tokens = append(tokens, makeToken(content, lines, i, end, tokAtomic, KindList))
			i = end
			continue
		}

		if para < 0 {
			para = i
		}
		i++
	}
	flush(len(lines))
	return tokens
}

// closeFence returns the index after the closing fence line, or len(lines)
// for an unterminated block.
func closeFence(lines []line, open int, fence string) int {
	char := fence[:1]
	for j := open + 1; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j].text)
		if len(t) >= len(fence) && strings.Trim(t, char) == "" {
			return j + 1
		}
	}
	return len(lines)
}

// closeList returns the index after the last line of the list starting at
// open. Blank lines stay inside the list when more items or indented
// continuation lines follow.
func closeList(lines []line, open int) int {
	end := open + 1
	for end < len(lines) {
		l := lines[end].text
		switch {
		case listItemPattern.MatchString(l), !isBlank(l) && isIndented(l):
			end++
		case isBlank(l):
			next := end + 1
			for next < len(lines) && isBlank(lines[next].text) {
				next++
			}
			if next < len(lines) && (listItemPattern.MatchString(lines[next].text) || isIndented(lines[next].text)) {
				end = next
				continue
			}
			return end
		default:
			// Lazy continuation of the previous item.
			if fencePattern.MatchString(l) || headingPattern.MatchString(l) || tableRowPattern.MatchString(l) {
				return end
			}
			end++
		}
	}
	return end
}

func makeToken(content string, lines []line, from, to int, kind tokenKind, block Kind) token {
	start := lines[from].start
	last := lines[to-1]
	end := last.start + len(last.text)
	if end > len(content) {
		end = len(content)
	}
	text := strings.TrimRight(content[start:end], " \t\r\n")
	return token{kind: kind, block: block, text: text, start: start}
}
