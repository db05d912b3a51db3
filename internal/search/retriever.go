package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/embed"
	apperrors "github.com/askdocs/askdocs/internal/errors"
	"github.com/askdocs/askdocs/internal/store"
)

// Result is one retrieved passage with its provenance.
type Result struct {
	Passage store.Passage
	// Score is the fused score, or the cross-encoder score when the
	// result went through the rerank window.
	Score float64
	// DenseRank and LexicalRank are the 1-indexed positions in the
	// per-source candidate lists (0 = absent from that list).
	DenseRank   int
	LexicalRank int
	// Reranked is true when Score comes from the cross-encoder.
	Reranked bool
}

// Retriever runs hybrid search over a loaded index bundle.
type Retriever struct {
	bundle   *store.Bundle
	embedder embed.Embedder
	reranker Reranker
	cfg      config.RetrievalConfig
}

// NewRetriever creates a retriever over the given bundle. The reranker
// may be nil when reranking is disabled.
func NewRetriever(bundle *store.Bundle, embedder embed.Embedder, reranker Reranker, cfg config.RetrievalConfig) (*Retriever, error) {
	if bundle == nil || embedder == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "retriever requires a bundle and an embedder", nil)
	}
	if reranker == nil {
		reranker = &NoOpReranker{}
	}
	return &Retriever{
		bundle:   bundle,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
	}, nil
}

// Search runs the full hybrid pipeline: parallel dense and lexical
// candidate retrieval, rank fusion, optional rerank of the top window,
// then truncation to limit.
//
// An empty index or a query matching nothing yields an empty slice, not
// an error. A single failing source degrades to the other; only both
// failing fails the search.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "query must not be empty", nil)
	}
	if limit <= 0 {
		limit = r.cfg.MaxResults
	}

	start := time.Now()

	if len(r.bundle.Passages) == 0 {
		return []Result{}, nil
	}

	dense, lexical, err := r.parallelSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	var fused []FusedHit
	switch r.cfg.Fusion {
	case config.FusionWeighted:
		fused = FuseWeighted(dense, lexical, r.cfg.AlphaDense, r.cfg.AlphaBM25)
	default:
		fused = FuseRRF(dense, lexical, r.cfg.RRFConstant)
	}

	results := r.resolve(fused)

	if r.cfg.UseReranker {
		results = r.rerankWindow(ctx, query, results)
	}

	if limit < len(results) {
		results = results[:limit]
	}

	slog.Info("search_complete",
		slog.String("query", truncate(query, 80)),
		slog.Int("dense_candidates", len(dense)),
		slog.Int("lexical_candidates", len(lexical)),
		slog.Int("fused", len(fused)),
		slog.Int("returned", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// parallelSearch runs dense and lexical retrieval concurrently.
// Either source may fail alone; its results are dropped with a warning
// and the other source carries the query. Both failing fails the search.
func (r *Retriever) parallelSearch(ctx context.Context, query string) ([]store.VectorHit, []store.LexicalHit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		dense   []store.VectorHit
		lexical []store.LexicalHit

		denseErr   error
		lexicalErr error
	)

	g.Go(func() error {
		embedding, err := r.embedder.Embed(gctx, query)
		if err != nil {
			denseErr = err
			return nil // degrade, don't cancel the lexical side
		}
		dense, denseErr = r.bundle.Vectors.Search(gctx, embedding, r.cfg.TopKDense)
		return nil
	})

	g.Go(func() error {
		lexical, lexicalErr = r.bundle.Lexical.Search(gctx, query, r.cfg.TopKBM25)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if denseErr != nil && lexicalErr != nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeSearchFailed,
			"both dense and lexical retrieval failed", errors.Join(denseErr, lexicalErr))
	}
	if denseErr != nil {
		slog.Warn("dense_search_degraded", slog.String("error", denseErr.Error()))
		dense = nil
	}
	if lexicalErr != nil {
		slog.Warn("lexical_search_degraded", slog.String("error", lexicalErr.Error()))
		lexical = nil
	}

	return dense, lexical, nil
}

// resolve maps fused hits back to passages. Hits whose ID falls outside
// the passage list indicate artifact drift and are dropped with a
// warning rather than crashing the query.
func (r *Retriever) resolve(fused []FusedHit) []Result {
	results := make([]Result, 0, len(fused))
	for _, h := range fused {
		if h.ID < 0 || h.ID >= len(r.bundle.Passages) {
			slog.Warn("fused_hit_out_of_range", slog.Int("id", h.ID))
			continue
		}
		results = append(results, Result{
			Passage:     r.bundle.Passages[h.ID],
			Score:       h.Score,
			DenseRank:   h.DenseRank,
			LexicalRank: h.LexicalRank,
		})
	}
	return results
}

// rerankWindow reorders the top RerankWindow results by cross-encoder
// score; everything past the window keeps its fusion order untouched.
// A failing or unavailable reranker degrades to fusion order.
func (r *Retriever) rerankWindow(ctx context.Context, query string, results []Result) []Result {
	window := r.cfg.RerankWindow
	if window > len(results) {
		window = len(results)
	}
	if window <= 1 {
		return results
	}

	if !r.reranker.Available(ctx) {
		slog.Warn("reranker_degraded",
			slog.String("error", apperrors.RerankerUnavailableError(nil).Error()))
		return results
	}

	documents := make([]string, window)
	for i := 0; i < window; i++ {
		documents[i] = results[i].Passage.Text
	}

	scored, err := r.reranker.Rerank(ctx, query, documents)
	if err != nil {
		slog.Warn("reranker_degraded", slog.String("error", err.Error()))
		return results
	}
	if len(scored) != window {
		slog.Warn("reranker_degraded",
			slog.String("error", "reranker returned wrong result count"))
		return results
	}

	head := make([]Result, 0, window)
	for _, s := range scored {
		res := results[s.Index]
		res.Score = s.Score
		res.Reranked = true
		head = append(head, res)
	}
	sort.SliceStable(head, func(i, j int) bool { return head[i].Score > head[j].Score })

	return append(head, results[window:]...)
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
