package lexical

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// IdentifierSplitName is the token filter that splits camelCase and
// snake_case identifiers into their parts.
const IdentifierSplitName = "identifier_split"

func init() {
	_ = registry.RegisterTokenFilter(IdentifierSplitName, identifierSplitConstructor)
}

// analyzerNames maps each script to its registered analyzer.
var analyzerNames = map[Script]string{
	ScriptEnglish:    "cognito_english",
	ScriptFrench:     "cognito_french",
	ScriptGerman:     "cognito_german",
	ScriptSpanish:    "cognito_spanish",
	ScriptItalian:    "cognito_italian",
	ScriptPortuguese: "cognito_portuguese",
	ScriptLatin:      "cognito_latin",
	ScriptCyrillic:   "cognito_cyrillic",
	ScriptCJK:        cjk.AnalyzerName,
	ScriptKorean:     "cognito_korean",
}

// customAnalyzers defines the unicode-tokenized pipelines by token filters.
var customAnalyzers = map[Script][]string{
	ScriptEnglish:    {IdentifierSplitName, en.PossessiveName, lowercase.Name, en.StopName, porter.Name},
	ScriptFrench:     {lowercase.Name, fr.StopName},
	ScriptGerman:     {lowercase.Name, de.StopName},
	ScriptSpanish:    {lowercase.Name, es.StopName},
	ScriptItalian:    {lowercase.Name, it.StopName},
	ScriptPortuguese: {lowercase.Name, pt.StopName},
	ScriptLatin:      {lowercase.Name, en.StopName},
	ScriptCyrillic:   {lowercase.Name, ru.StopName},
	ScriptKorean:     {lowercase.Name},
}

// Analyzer turns text into index terms using the pipeline of the text's
// dominant script.
type Analyzer struct {
	analyzers map[Script]analysis.Analyzer
}

// newIndexMapping returns a bleve mapping with every script analyzer
// registered.
func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	for _, script := range Scripts {
		filters, ok := customAnalyzers[script]
		if !ok {
			continue
		}
		err := indexMapping.AddCustomAnalyzer(analyzerNames[script], map[string]interface{}{
			"type":          custom.Name,
			"tokenizer":     unicodetok.Name,
			"token_filters": filters,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s analyzer: %w", script, err)
		}
	}
	return indexMapping, nil
}

// NewAnalyzer builds every script pipeline.
func NewAnalyzer() (*Analyzer, error) {
	indexMapping, err := newIndexMapping()
	if err != nil {
		return nil, err
	}

	a := &Analyzer{analyzers: make(map[Script]analysis.Analyzer, len(Scripts))}
	for _, script := range Scripts {
		an := indexMapping.AnalyzerNamed(analyzerNames[script])
		if an == nil {
			return nil, fmt.Errorf("analyzer %s not available", analyzerNames[script])
		}
		a.analyzers[script] = an
	}
	return a, nil
}

// Terms classifies text and returns its terms in order.
func (a *Analyzer) Terms(text string) []string {
	return a.TermsFor(Classify(text), text)
}

// TermsFor analyzes text with the pipeline of script.
func (a *Analyzer) TermsFor(script Script, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	an, ok := a.analyzers[script]
	if !ok {
		an = a.analyzers[ScriptEnglish]
	}
	stream := an.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	return terms
}

func identifierSplitConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &identifierSplitFilter{}, nil
}

// identifierSplitFilter keeps each token and adds its identifier parts when
// it splits into more than one.
type identifierSplitFilter struct{}

// Filter implements analysis.TokenFilter.
func (f *identifierSplitFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		result = append(result, token)
		parts := SplitIdentifier(string(token.Term))
		if len(parts) < 2 {
			continue
		}
		for _, p := range parts {
			result = append(result, &analysis.Token{
				Term:     []byte(p),
				Start:    token.Start,
				End:      token.End,
				Position: token.Position,
				Type:     token.Type,
			})
		}
	}
	return result
}

// SplitIdentifier splits snake_case and camelCase identifiers.
//
//	"getUserById"  -> ["get", "User", "By", "Id"]
//	"parse_HTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitIdentifier(token string) []string {
	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, splitCamelCase(part)...)
		}
	}
	return result
}

func splitCamelCase(s string) []string {
	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
