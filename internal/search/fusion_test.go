package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/store"
)

func ids(hits []FusedHit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestFuseRRF_BothListsBeatSingleList(t *testing.T) {
	dense := []store.VectorHit{
		{ID: 7, Score: 0.92},
		{ID: 2, Score: 0.88},
		{ID: 9, Score: 0.70},
	}
	lexical := []store.LexicalHit{
		{ID: 2, Score: 11.4},
		{ID: 5, Score: 9.1},
		{ID: 7, Score: 3.3},
	}

	fused := FuseRRF(dense, lexical, 60)
	require.Len(t, fused, 4)

	// Passages in both lists (2 and 7) must outrank single-list ones.
	assert.Equal(t, []int{2, 7, 5, 9}, ids(fused))

	top := fused[0]
	assert.InDelta(t, 1.0/62+1.0/61, top.Score, 1e-12)
	assert.Equal(t, 2, top.DenseRank)
	assert.Equal(t, 1, top.LexicalRank)
	assert.Equal(t, 0.88, top.DenseScore)
	assert.Equal(t, 11.4, top.LexicalScore)
}

func TestFuseRRF_DependsOnRanksNotScores(t *testing.T) {
	dense := []store.VectorHit{
		{ID: 1, Score: 0.9},
		{ID: 2, Score: 0.8},
	}
	lexical := []store.LexicalHit{
		{ID: 2, Score: 5.0},
		{ID: 3, Score: 1.0},
	}

	base := FuseRRF(dense, lexical, 60)

	// Rescale raw scores arbitrarily; ranks are unchanged.
	scaledDense := []store.VectorHit{
		{ID: 1, Score: 0.0009},
		{ID: 2, Score: 0.0008},
	}
	scaledLexical := []store.LexicalHit{
		{ID: 2, Score: 5000},
		{ID: 3, Score: 1000},
	}
	scaled := FuseRRF(scaledDense, scaledLexical, 60)

	assert.Equal(t, ids(base), ids(scaled), "RRF order must depend only on ranks")
	for i := range base {
		assert.Equal(t, base[i].Score, scaled[i].Score)
	}
}

func TestFuseRRF_MissingListContributesNothing(t *testing.T) {
	// One passage in the dense list only: its score is exactly the dense
	// term, with no penalty term for the absent lexical rank.
	fused := FuseRRF([]store.VectorHit{{ID: 4, Score: 0.5}}, nil, 60)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
	assert.Equal(t, 0, fused[0].LexicalRank)
}

func TestFuseRRF_TieBreaksBySmallerID(t *testing.T) {
	// Two passages at the same rank in opposite lists tie exactly.
	dense := []store.VectorHit{{ID: 9, Score: 0.9}}
	lexical := []store.LexicalHit{{ID: 3, Score: 4.2}}

	fused := FuseRRF(dense, lexical, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].Score, fused[1].Score)
	assert.Equal(t, []int{3, 9}, ids(fused))
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	fused := FuseRRF(nil, nil, 60)
	assert.Empty(t, fused)
	assert.NotNil(t, fused)
}

func TestFuseRRF_NonPositiveKFallsBack(t *testing.T) {
	dense := []store.VectorHit{{ID: 0, Score: 1}}
	fused := FuseRRF(dense, nil, 0)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/(DefaultRRFConstant+1), fused[0].Score, 1e-12)
}

func TestFuseWeighted_NormalizesPerList(t *testing.T) {
	// BM25 scores are an order of magnitude larger than dense similarity;
	// normalization keeps the configured weights in charge.
	dense := []store.VectorHit{
		{ID: 1, Score: 0.9},
		{ID: 2, Score: 0.45},
	}
	lexical := []store.LexicalHit{
		{ID: 2, Score: 12.0},
		{ID: 3, Score: 6.0},
	}

	fused := FuseWeighted(dense, lexical, 0.6, 0.4)
	require.Len(t, fused, 3)

	byID := map[int]FusedHit{}
	for _, h := range fused {
		byID[h.ID] = h
	}

	assert.InDelta(t, 0.6, byID[1].Score, 1e-12, "dense top normalizes to 1.0 * alpha")
	assert.InDelta(t, 0.6*0.5+0.4*1.0, byID[2].Score, 1e-12)
	assert.InDelta(t, 0.4*0.5, byID[3].Score, 1e-12)
	assert.Equal(t, 2, fused[0].ID, "passage in both lists wins")
}

func TestFuseWeighted_MissingListContributesZero(t *testing.T) {
	fused := FuseWeighted([]store.VectorHit{{ID: 0, Score: 0.8}}, nil, 0.6, 0.4)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.6, fused[0].Score, 1e-12)
}
