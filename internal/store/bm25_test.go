package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPassages() []Passage {
	return []Passage{
		{ID: 0, SourceID: "pool.md", Text: "The swimming pool opens at six in the morning."},
		{ID: 1, SourceID: "pool.md", Text: "Lap lanes are reserved for swim team practice on weekdays."},
		{ID: 2, SourceID: "library.md", Text: "The library reading room closes at nine in the evening."},
	}
}

func newMemIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Add(context.Background(), testPassages()))
	return idx
}

func TestBleveIndex_MatchesKeywords(t *testing.T) {
	idx := newMemIndex(t)

	hits, err := idx.Search(context.Background(), "swimming pool", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, 0, hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "hits must be best first")
	}
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}
}

func TestBleveIndex_CaseInsensitive(t *testing.T) {
	idx := newMemIndex(t)

	lower, err := idx.Search(context.Background(), "library", 10)
	require.NoError(t, err)
	upper, err := idx.Search(context.Background(), "LIBRARY", 10)
	require.NoError(t, err)

	require.NotEmpty(t, lower)
	require.Equal(t, len(lower), len(upper))
	assert.Equal(t, lower[0].ID, upper[0].ID)
}

func TestBleveIndex_EmptyQueryAndNoMatch(t *testing.T) {
	idx := newMemIndex(t)

	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(context.Background(), "zzzzzz", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "no-match query yields an empty slice, not an error")
}

func TestBleveIndex_LimitRespected(t *testing.T) {
	idx := newMemIndex(t)

	hits, err := idx.Search(context.Background(), "the", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 1)
}

func TestBleveIndex_CountAndReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lexical.bleve")

	idx, err := NewBleveIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), testPassages()))

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, idx.Close())

	reopened, err := OpenBleveIndex(dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	hits, err := reopened.Search(context.Background(), "lap lanes", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, 1, hits[0].ID)
}
