package store

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters. M and EfSearch follow the coder/hnsw recommendations;
// Ml is the level generation factor (roughly 1/ln(M)).
const (
	hnswM        = 16
	hnswEfSearch = 20
	hnswMl       = 0.25
)

// HNSWIndex implements VectorIndex with the pure Go coder/hnsw graph.
// Keys are passage IDs assigned sequentially by Add, so the graph key
// space is exactly the embedding matrix row space.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[int]
	dims  int
	count int

	closed bool
}

// Verify interface implementation
var _ VectorIndex = (*HNSWIndex)(nil)

// NewHNSWIndex creates an empty vector index for unit vectors of the
// given dimension, using cosine distance.
func NewHNSWIndex(dims int) (*HNSWIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dims)
	}

	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = hnswM
	graph.EfSearch = hnswEfSearch
	graph.Ml = hnswMl

	return &HNSWIndex{
		graph: graph,
		dims:  dims,
	}, nil
}

// Add appends vectors in passage order. Vectors are normalized before
// insertion so cosine distance behaves as expected.
func (s *HNSWIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	for _, v := range vectors {
		if len(v) != s.dims {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dims, len(v))
		}
	}

	for _, v := range vectors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		vec := make([]float32, len(v))
		copy(vec, v)
		normalizeVectorInPlace(vec)

		s.graph.Add(hnsw.MakeNode(s.count, vec))
		s.count++
	}

	return nil
}

// Search finds up to k nearest passages to the query vector.
func (s *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != s.dims {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dims, len(query))
	}
	if s.count == 0 || k <= 0 {
		return []VectorHit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		distance := s.graph.Distance(normalized, node.Value)
		hits = append(hits, VectorHit{
			ID:    node.Key,
			Score: distanceToScore(distance),
		})
	}

	return hits, nil
}

// Count returns the number of indexed vectors.
func (s *HNSWIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Dimensions returns the vector dimension.
func (s *HNSWIndex) Dimensions() int {
	return s.dims
}

// Save persists the graph to path via temp file + rename.
func (s *HNSWIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	return nil
}

// Load replaces the graph contents with the export at path. The count is
// recomputed from the imported graph.
func (s *HNSWIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}

	s.count = s.graph.Len()
	return nil
}

// Close releases resources.
func (s *HNSWIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts cosine distance (0 identical, 2 opposite) to a
// similarity score in [0, 1].
func distanceToScore(distance float32) float64 {
	return float64(1.0 - distance/2.0)
}
