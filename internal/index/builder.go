// Package index builds the retrieval artifact bundle from a corpus
// directory: load, chunk, embed, index, persist.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/askdocs/askdocs/internal/chunk"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/embed"
	apperrors "github.com/askdocs/askdocs/internal/errors"
	"github.com/askdocs/askdocs/internal/loader"
	"github.com/askdocs/askdocs/internal/store"
)

// embedWorkers bounds concurrent embedding batches. The Ollama server
// serializes heavy work anyway; a small number keeps the pipe full
// without flooding it.
const embedWorkers = 4

// Stats summarizes one completed build.
type Stats struct {
	BuildID    string
	Documents  int
	Passages   int
	Dimensions int
	Duration   time.Duration
}

// Builder runs the build pipeline.
type Builder struct {
	cfg      *config.Config
	embedder embed.Embedder
}

// NewBuilder creates a builder using the given embedder.
func NewBuilder(cfg *config.Config, embedder embed.Embedder) *Builder {
	return &Builder{cfg: cfg, embedder: embedder}
}

// Build produces a fresh index bundle at the configured index directory.
// The previous bundle, if any, stays live until the new one commits.
func (b *Builder) Build(ctx context.Context) (*Stats, error) {
	start := time.Now()

	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	lock := NewBuildLock(b.cfg.Paths.IndexDir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("build_lock_release_failed", slog.String("error", err.Error()))
		}
	}()

	docs, err := loader.Load(b.cfg.Paths.CorpusDir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.EmptyCorpusError(b.cfg.Paths.CorpusDir)
	}

	passages, err := b.chunkAll(docs)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, apperrors.EmptyCorpusError(b.cfg.Paths.CorpusDir).
			WithDetail("reason", "documents contained only whitespace")
	}
	slog.Info("corpus_chunked",
		slog.Int("documents", len(docs)),
		slog.Int("passages", len(passages)))

	matrix, err := b.embedAll(ctx, passages)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeEmbeddingFailed, err)
	}

	dims := b.embedder.Dimensions()
	if dims == 0 && len(matrix) > 0 {
		dims = len(matrix[0])
	}

	manifest := store.Manifest{
		Version:      store.ManifestVersion,
		BuildID:      store.NewBuildID(),
		BuiltAt:      time.Now().UTC(),
		Model:        b.embedder.ModelName(),
		Dimensions:   dims,
		ChunkSize:    b.cfg.Chunk.Size,
		ChunkOverlap: b.cfg.Chunk.Overlap,
		Documents:    len(docs),
		Passages:     len(passages),
	}

	if err := b.persist(ctx, manifest, passages, matrix, dims); err != nil {
		return nil, err
	}

	stats := &Stats{
		BuildID:    manifest.BuildID,
		Documents:  len(docs),
		Passages:   len(passages),
		Dimensions: dims,
		Duration:   time.Since(start),
	}

	slog.Info("build_complete",
		slog.String("build_id", stats.BuildID),
		slog.Int("documents", stats.Documents),
		slog.Int("passages", stats.Passages),
		slog.Int("dimensions", stats.Dimensions),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// chunkAll splits every document and assigns global sequential passage
// IDs in document order. This ordering is the contract everything else
// rests on: passage N is matrix row N, vector entry N, and lexical
// document "N".
func (b *Builder) chunkAll(docs []loader.Document) ([]store.Passage, error) {
	chunker, err := chunk.New(b.cfg.Chunk.Size, b.cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}

	var passages []store.Passage
	for _, doc := range docs {
		for _, p := range chunker.Split(doc.SourceID, doc.Text) {
			passages = append(passages, store.Passage{
				ID:       len(passages),
				SourceID: p.SourceID,
				Text:     p.Text,
				Start:    p.Start,
				End:      p.End,
			})
		}
	}
	return passages, nil
}

// embedAll embeds all passages into a preallocated matrix. Batches run
// in parallel but each writes its own row range, so row order always
// matches passage order no matter which batch finishes first.
func (b *Builder) embedAll(ctx context.Context, passages []store.Passage) ([][]float32, error) {
	batchSize := b.cfg.Embeddings.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	matrix := make([][]float32, len(passages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)

	for start := 0; start < len(passages); start += batchSize {
		end := start + batchSize
		if end > len(passages) {
			end = len(passages)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = passages[i].Text
			}

			vectors, err := b.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed passages %d-%d: %w", start, end-1, err)
			}
			if len(vectors) != end-start {
				return fmt.Errorf("embed passages %d-%d: got %d vectors", start, end-1, len(vectors))
			}

			copy(matrix[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// persist builds both indexes concurrently in a staging bundle and
// commits it.
func (b *Builder) persist(ctx context.Context, manifest store.Manifest, passages []store.Passage, matrix [][]float32, dims int) error {
	staging, err := store.NewStagingBundle(b.cfg.Paths.IndexDir, dims, manifest)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return staging.Vectors.Add(gctx, matrix) })
	g.Go(func() error { return staging.Lexical.Add(gctx, passages) })
	g.Go(func() error { return staging.WriteMatrix(matrix) })

	if err := g.Wait(); err != nil {
		staging.Abort()
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to build index artifacts", err)
	}

	if err := staging.WritePassages(passages); err != nil {
		staging.Abort()
		return err
	}

	if err := staging.Commit(); err != nil {
		staging.Abort()
		return err
	}
	return nil
}
