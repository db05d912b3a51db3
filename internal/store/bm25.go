package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// passageAnalyzerName is the custom analyzer registered on the index
// mapping: unicode word tokenization, lowercasing, English stop words.
const passageAnalyzerName = "passage_analyzer"

// indexBatchSize bounds the number of passages per Bleve batch.
const indexBatchSize = 500

// BleveIndex implements LexicalIndex with Bleve's BM25 scoring.
// Document IDs are the decimal form of the passage ID.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Verify interface implementation
var _ LexicalIndex = (*BleveIndex)(nil)

// bleveDocument is the indexed document shape.
type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveIndex creates a lexical index at path, or in memory when path
// is empty.
func NewBleveIndex(path string) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

// OpenBleveIndex opens an existing lexical index directory.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return &BleveIndex{index: idx, path: path}, nil
}

// createIndexMapping builds the index mapping with the passage analyzer
// as default.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(passageAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			en.StopName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = passageAnalyzerName
	return indexMapping, nil
}

// Add indexes passages in batches under their integer IDs.
func (b *BleveIndex) Add(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for i, p := range passages {
		if err := batch.Index(strconv.Itoa(p.ID), bleveDocument{Content: p.Text}); err != nil {
			return fmt.Errorf("failed to index passage %d: %w", p.ID, err)
		}

		if batch.Size() >= indexBatchSize || i == len(passages)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = b.index.NewBatch()
		}
	}

	return nil
}

// Search returns up to k best BM25 matches for the query.
func (b *BleveIndex) Search(ctx context.Context, query string, k int) ([]LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(query) == "" || k <= 0 {
		return []LexicalHit{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = k

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("non-numeric document ID %q in lexical index", hit.ID)
		}
		hits = append(hits, LexicalHit{ID: id, Score: hit.Score})
	}

	return hits, nil
}

// Count returns the number of indexed passages.
func (b *BleveIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}

	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
