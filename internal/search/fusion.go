// Package search implements hybrid retrieval: dense and lexical
// candidate lists fused by rank, with an optional cross-encoder rerank
// of the top window.
package search

import (
	"sort"

	"github.com/askdocs/askdocs/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (Azure AI Search, OpenSearch).
const DefaultRRFConstant = 60

// FusedHit is one passage after fusion. The original per-source scores
// and 1-indexed ranks are preserved for display; a rank of 0 means the
// passage was absent from that list.
type FusedHit struct {
	ID           int
	Score        float64
	DenseScore   float64
	DenseRank    int
	LexicalScore float64
	LexicalRank  int
}

// FuseRRF combines dense and lexical results by Reciprocal Rank Fusion:
//
//	score(p) = Σ over lists containing p of 1 / (k + rank_p)
//
// A passage missing from one list simply contributes nothing for that
// list. RRF depends only on ranks, never on raw scores, which is what
// makes it safe across the incomparable dense and BM25 scales.
//
// Ties are broken by smaller passage ID, so results are deterministic
// for a given pair of input lists.
func FuseRRF(dense []store.VectorHit, lexical []store.LexicalHit, k int) []FusedHit {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	hits := make(map[int]*FusedHit, len(dense)+len(lexical))

	for rank, h := range dense {
		fh := getOrCreate(hits, h.ID)
		fh.DenseScore = h.Score
		fh.DenseRank = rank + 1
		fh.Score += 1.0 / float64(k+rank+1)
	}

	for rank, h := range lexical {
		fh := getOrCreate(hits, h.ID)
		fh.LexicalScore = h.Score
		fh.LexicalRank = rank + 1
		fh.Score += 1.0 / float64(k+rank+1)
	}

	return toSortedSlice(hits)
}

// FuseWeighted combines dense and lexical results by weighted score sum.
// Each list's scores are first normalized to [0, 1] by the list maximum;
// summing the raw scores directly would let whichever source happens to
// use a larger scale dominate regardless of the weights.
//
//	score(p) = alphaDense * normDense(p) + alphaLexical * normLexical(p)
//
// A passage missing from one list contributes zero for that list.
func FuseWeighted(dense []store.VectorHit, lexical []store.LexicalHit, alphaDense, alphaLexical float64) []FusedHit {
	hits := make(map[int]*FusedHit, len(dense)+len(lexical))

	denseMax := 0.0
	for _, h := range dense {
		if h.Score > denseMax {
			denseMax = h.Score
		}
	}
	lexicalMax := 0.0
	for _, h := range lexical {
		if h.Score > lexicalMax {
			lexicalMax = h.Score
		}
	}

	for rank, h := range dense {
		fh := getOrCreate(hits, h.ID)
		fh.DenseScore = h.Score
		fh.DenseRank = rank + 1
		if denseMax > 0 {
			fh.Score += alphaDense * (h.Score / denseMax)
		}
	}

	for rank, h := range lexical {
		fh := getOrCreate(hits, h.ID)
		fh.LexicalScore = h.Score
		fh.LexicalRank = rank + 1
		if lexicalMax > 0 {
			fh.Score += alphaLexical * (h.Score / lexicalMax)
		}
	}

	return toSortedSlice(hits)
}

func getOrCreate(m map[int]*FusedHit, id int) *FusedHit {
	if h, ok := m[id]; ok {
		return h
	}
	h := &FusedHit{ID: id}
	m[id] = h
	return h
}

// toSortedSlice orders hits by score descending, smaller ID on ties.
func toSortedSlice(m map[int]*FusedHit) []FusedHit {
	results := make([]FusedHit, 0, len(m))
	for _, h := range m {
		results = append(results, *h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results
}
