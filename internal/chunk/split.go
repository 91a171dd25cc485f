package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// splitOversized breaks text into pieces of at most max runes, trying line
// boundaries first, then word boundaries, then raw rune boundaries.
func splitOversized(text string, max int) []string {
	if runeLen(text) <= max {
		return []string{text}
	}
	return pack(strings.Split(text, "\n"), "\n", max, func(l string) []string {
		return pack(strings.Fields(l), " ", max, func(w string) []string {
			return splitRunes(w, max)
		})
	})
}

// pack greedily joins units with sep while the result stays within max.
// Units longer than max are handed to split.
func pack(units []string, sep string, max int, split func(string) []string) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	sepLen := runeLen(sep)

	emit := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, u := range units {
		n := runeLen(u)
		if n == 0 {
			continue
		}
		if n > max {
			emit()
			out = append(out, split(u)...)
			continue
		}
		if curLen > 0 && curLen+sepLen+n > max {
			emit()
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += sepLen
		}
		cur.WriteString(u)
		curLen += n
	}
	emit()
	return out
}

func splitRunes(s string, max int) []string {
	var out []string
	r := []rune(s)
	for len(r) > max {
		out = append(out, string(r[:max]))
		r = r[max:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

// tailWords returns the longest suffix of s, at most n runes, that starts
// on a word boundary.
func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return strings.TrimSpace(s)
	}
	cut := len(r) - n
	if !unicode.IsSpace(r[cut-1]) {
		for cut < len(r) && !unicode.IsSpace(r[cut]) {
			cut++
		}
	}
	return strings.TrimSpace(string(r[cut:]))
}

// headTrunc keeps at most n runes from the start of s.
func headTrunc(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// tailTrunc keeps at most n runes from the end of s.
func tailTrunc(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
