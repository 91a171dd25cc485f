package lexical

import (
	"strings"
	"unicode"
)

// Script selects the analysis pipeline for a piece of text.
type Script string

// Supported scripts.
const (
	ScriptEnglish    Script = "english"
	ScriptFrench     Script = "french"
	ScriptGerman     Script = "german"
	ScriptSpanish    Script = "spanish"
	ScriptItalian    Script = "italian"
	ScriptPortuguese Script = "portuguese"
	ScriptLatin      Script = "latin"
	ScriptCyrillic   Script = "cyrillic"
	ScriptCJK        Script = "cjk"
	ScriptKorean     Script = "korean"
)

// Scripts lists every script in a fixed order.
var Scripts = []Script{
	ScriptEnglish, ScriptFrench, ScriptGerman, ScriptSpanish, ScriptItalian,
	ScriptPortuguese, ScriptLatin, ScriptCyrillic, ScriptCJK, ScriptKorean,
}

// languageMarkers are high-frequency function words used to tell Latin
// script languages apart.
var languageMarkers = map[Script]map[string]struct{}{
	ScriptEnglish:    wordSet("the", "and", "of", "to", "is", "in", "that", "it", "for", "with", "this", "are", "was", "you", "not"),
	ScriptFrench:     wordSet("le", "la", "les", "et", "des", "est", "une", "du", "que", "pour", "dans", "pas", "sur", "avec", "qui"),
	ScriptGerman:     wordSet("der", "die", "und", "das", "ist", "nicht", "ein", "eine", "mit", "den", "auf", "für", "sich", "auch", "dem"),
	ScriptSpanish:    wordSet("el", "los", "las", "y", "es", "una", "por", "con", "para", "del", "que", "se", "lo", "como", "pero"),
	ScriptItalian:    wordSet("il", "di", "che", "è", "per", "una", "gli", "non", "sono", "della", "con", "del", "nel", "anche", "come"),
	ScriptPortuguese: wordSet("o", "os", "as", "e", "não", "uma", "com", "para", "do", "da", "em", "que", "dos", "são", "mais"),
}

// latinTieOrder breaks equal marker counts deterministically.
var latinTieOrder = []Script{
	ScriptEnglish, ScriptFrench, ScriptGerman, ScriptSpanish, ScriptItalian, ScriptPortuguese,
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Classify returns the dominant script of text. Latin script text is
// further split by function word density; text without any evidence is
// treated as English unless most of its letters are non-ASCII.
func Classify(text string) Script {
	var latin, nonASCIILatin, cyrillic, cjk, hangul int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			cjk++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
			if r > unicode.MaxASCII {
				nonASCIILatin++
			}
		}
	}

	best, bestCount := ScriptEnglish, latin
	for _, c := range []struct {
		script Script
		count  int
	}{{ScriptCyrillic, cyrillic}, {ScriptCJK, cjk}, {ScriptKorean, hangul}} {
		if c.count > bestCount {
			best, bestCount = c.script, c.count
		}
	}
	if best != ScriptEnglish || latin == 0 {
		return best
	}
	return classifyLatin(text, latin, nonASCIILatin)
}

func classifyLatin(text string, letters, nonASCII int) Script {
	counts := make(map[Script]int, len(languageMarkers))
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		for script, set := range languageMarkers {
			if _, ok := set[w]; ok {
				counts[script]++
			}
		}
	}

	best, bestCount := ScriptEnglish, 0
	for _, s := range latinTieOrder {
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	if bestCount == 0 && nonASCII*5 >= letters {
		return ScriptLatin
	}
	return best
}
