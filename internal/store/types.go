// Package store holds the persistent retrieval indexes: the HNSW vector
// index, the Bleve BM25 lexical index, and the artifact bundle that ties
// them together on disk.
//
// Passages are identified by their position in the build order: the Nth
// passage emitted by the chunker is row N of the embedding matrix, entry
// N of the vector index, and document "N" in the lexical index. That
// single integer is the join key for everything downstream.
package store

import "context"

// Passage is one indexed retrieval unit.
type Passage struct {
	// ID is the passage's position in build order.
	ID int `json:"id"`
	// SourceID identifies the originating document (path relative to the
	// corpus root).
	SourceID string `json:"source_id"`
	// Text is the passage content, a contiguous slice of the document.
	Text string `json:"text"`
	// Start and End are the character span [Start, End) into the document.
	Start int `json:"start"`
	// End is exclusive.
	End int `json:"end"`
}

// VectorHit is one dense search result.
type VectorHit struct {
	// ID is the passage identifier.
	ID int
	// Score is cosine similarity mapped to [0, 1]; higher is better.
	Score float64
}

// LexicalHit is one BM25 search result.
type LexicalHit struct {
	// ID is the passage identifier.
	ID int
	// Score is the raw BM25 score; higher is better. Not comparable to
	// dense similarity.
	Score float64
}

// VectorIndex is the dense retrieval index over passage embeddings.
type VectorIndex interface {
	// Add appends vectors in passage order. The ith vector of the first
	// call gets ID i; later calls continue the sequence.
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns up to k nearest passages, best first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Save persists the index to path.
	Save(path string) error

	// Close releases resources.
	Close() error
}

// LexicalIndex is the BM25 keyword index over passage text.
type LexicalIndex interface {
	// Add indexes passages under their integer IDs.
	Add(ctx context.Context, passages []Passage) error

	// Search returns up to k best-matching passages, best first. An empty
	// or no-match query yields an empty slice, not an error.
	Search(ctx context.Context, query string, k int) ([]LexicalHit, error)

	// Count returns the number of indexed passages.
	Count() (int, error)

	// Close releases resources.
	Close() error
}
