package search

import (
	"context"
)

// RerankResult is one cross-encoder score.
type RerankResult struct {
	// Index is the original position in the input documents slice.
	Index int
	// Score is the relevance score; higher is better.
	Score float64
}

// Reranker scores query-document pairs with a cross-encoder. Joint
// encoding is more accurate than the bi-encoder used for dense
// retrieval, but far too slow to run over the whole corpus, which is
// why it only ever sees the top fused window.
type Reranker interface {
	// Rerank scores documents against the query and returns results
	// sorted by score descending.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)

	// Available checks if the reranker service is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NoOpReranker keeps results in their incoming order. Used when
// reranking is disabled.
type NoOpReranker struct{}

// Verify interface implementation at compile time
var _ Reranker = (*NoOpReranker)(nil)

// Rerank returns documents in original order with decreasing scores.
func (n *NoOpReranker) Rerank(_ context.Context, _ string, documents []string) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i := range documents {
		results[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.01}
	}
	return results, nil
}

// Available always returns true for NoOpReranker.
func (n *NoOpReranker) Available(_ context.Context) bool {
	return true
}

// Close is a no-op for NoOpReranker.
func (n *NoOpReranker) Close() error {
	return nil
}
