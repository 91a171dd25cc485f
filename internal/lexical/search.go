package lexical

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

// Indexed field names.
const (
	contentField = "content"
	titleField   = "title"
)

// fieldScripts is the classification of one record's fields.
type fieldScripts struct {
	ID      string `json:"id"`
	Content Script `json:"content"`
	Title   Script `json:"title"`
}

func classifyRecord(r Record) fieldScripts {
	return fieldScripts{ID: r.ID, Content: Classify(r.Content), Title: Classify(r.Title)}
}

// docType names the document mapping whose analyzers match s.
func (s fieldScripts) docType() string {
	return string(s.Content) + "+" + string(s.Title)
}

// document is the bleve form of a record.
type document struct {
	Content string `json:"content"`
	Title   string `json:"title"`

	scripts fieldScripts
}

// BleveType selects the document mapping for the record's scripts.
func (d document) BleveType() string {
	return d.scripts.docType()
}

// newSearchMapping returns a BM25 scored mapping with one document type per
// pair of content and title scripts, so each field is analyzed with the
// pipeline of its own script.
func newSearchMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping, err := newIndexMapping()
	if err != nil {
		return nil, err
	}
	indexMapping.ScoringModel = index.BM25Scoring
	indexMapping.DefaultMapping = bleve.NewDocumentDisabledMapping()

	for _, contentScript := range Scripts {
		for _, titleScript := range Scripts {
			dm := bleve.NewDocumentStaticMapping()
			dm.AddFieldMappingsAt(contentField, textField(analyzerNames[contentScript]))
			dm.AddFieldMappingsAt(titleField, textField(analyzerNames[titleScript]))
			indexMapping.AddDocumentMapping(fieldScripts{Content: contentScript, Title: titleScript}.docType(), dm)
		}
	}
	if err := indexMapping.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lexical mapping: %w", err)
	}
	return indexMapping, nil
}

func textField(analyzer string) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	fm.Store = false
	fm.IncludeTermVectors = false
	fm.IncludeInAll = false
	fm.DocValues = false
	return fm
}

// searchIndex is an immutable in-memory bleve index over a record set.
type searchIndex struct {
	index bleve.Index
	docs  int
	terms int
}

// buildSearchIndex indexes records in id order. BM25 needs field
// cardinalities, which only scorch provides; an empty path keeps the
// segments in memory.
func buildSearchIndex(m mapping.IndexMapping, records []Record, scripts map[string]fieldScripts) (*searchIndex, error) {
	bi, err := bleve.NewUsing("", m, scorch.Name, scorch.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	batch := bi.NewBatch()
	for _, r := range sorted {
		fs, ok := scripts[r.ID]
		if !ok {
			fs = classifyRecord(r)
		}
		doc := document{Content: r.Content, Title: r.Title, scripts: fs}
		if err := batch.Index(r.ID, doc); err != nil {
			_ = bi.Close()
			return nil, fmt.Errorf("failed to index record %s: %w", r.ID, err)
		}
	}
	if batch.Size() > 0 {
		if err := bi.Batch(batch); err != nil {
			_ = bi.Close()
			return nil, fmt.Errorf("failed to execute batch: %w", err)
		}
	}

	terms, err := countTerms(bi, contentField, titleField)
	if err != nil {
		_ = bi.Close()
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	return &searchIndex{index: bi, docs: len(sorted), terms: terms}, nil
}

// countTerms returns the number of distinct terms across fields.
func countTerms(bi bleve.Index, fields ...string) (int, error) {
	n := 0
	for _, field := range fields {
		dict, err := bi.FieldDict(field)
		if err != nil {
			return 0, err
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return 0, err
			}
			if entry == nil {
				break
			}
			n++
		}
		if err := dict.Close(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// search runs text against both fields as a disjunction boosted by the
// field weights. The query is analyzed with the pipeline of its own script.
// Hits are returned unsorted.
func (s *searchIndex) search(ctx context.Context, text string, contentWeight, titleWeight float64) ([]Hit, error) {
	if s.docs == 0 {
		return nil, nil
	}
	analyzer := analyzerNames[Classify(text)]

	var clauses []query.Query
	if contentWeight > 0 {
		clauses = append(clauses, fieldQuery(text, contentField, analyzer, contentWeight))
	}
	if titleWeight > 0 {
		clauses = append(clauses, fieldQuery(text, titleField, analyzer, titleWeight))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(clauses...))
	req.Size = s.docs
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.Score > 0 {
			hits = append(hits, Hit{ID: hit.ID, Score: hit.Score})
		}
	}
	return hits, nil
}

func fieldQuery(text, field, analyzer string, boost float64) query.Query {
	mq := bleve.NewMatchQuery(text)
	mq.SetField(field)
	mq.Analyzer = analyzer
	mq.SetBoost(boost)
	return mq
}

func (s *searchIndex) close() error {
	if s == nil || s.index == nil {
		return nil
	}
	return s.index.Close()
}
