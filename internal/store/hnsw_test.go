package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unit returns a 4-dim unit vector pointing mostly along axis.
func unit(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

func TestHNSWIndex_SequentialIDs(t *testing.T) {
	idx, err := NewHNSWIndex(4)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{unit(0), unit(1)}))
	require.NoError(t, idx.Add(ctx, [][]float32{unit(2)}))

	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, unit(2), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].ID, "third added vector must carry ID 2")
}

func TestHNSWIndex_NearestFirst(t *testing.T) {
	idx, err := NewHNSWIndex(4)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 0, 1, 0},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].ID)
	assert.Equal(t, 1, hits[1].ID)
	assert.Equal(t, 2, hits[2].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5, "identical vector scores 1")
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestHNSWIndex_EmptyAndDimensionChecks(t *testing.T) {
	idx, err := NewHNSWIndex(4)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	ctx := context.Background()

	hits, err := idx.Search(ctx, unit(0), 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "empty index yields no hits, not an error")

	err = idx.Add(ctx, [][]float32{{1, 0}})
	assert.Error(t, err, "wrong dimension must be rejected")

	_, err = idx.Search(ctx, []float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestHNSWIndex_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	idx, err := NewHNSWIndex(4)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{unit(0), unit(1), unit(2)}))
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	loaded, err := NewHNSWIndex(4)
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 3, loaded.Count())

	hits, err := loaded.Search(ctx, unit(1), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ID)
}
