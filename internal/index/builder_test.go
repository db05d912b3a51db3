package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/embed"
	apperrors "github.com/askdocs/askdocs/internal/errors"
	"github.com/askdocs/askdocs/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewConfig()
	cfg.Paths.CorpusDir = filepath.Join(base, "docs")
	cfg.Paths.IndexDir = filepath.Join(base, "index")
	cfg.Chunk.Size = 120
	cfg.Chunk.Overlap = 20
	cfg.Embeddings.Provider = config.ProviderStatic
	require.NoError(t, os.MkdirAll(cfg.Paths.CorpusDir, 0o755))
	return cfg
}

func writeDoc(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.CorpusDir, name), []byte(content), 0o644))
}

func TestBuilder_ProducesLoadableBundle(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "pool.md",
		"The swimming pool opens at six in the morning.\n\n"+
			"Lap lanes are reserved for team practice on weekday evenings.\n\n"+
			"The diving boards close thirty minutes before the pool.")
	writeDoc(t, cfg, "library.txt",
		"Library cards can be renewed online.\n\nThe reading room closes at nine.")

	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	stats, err := NewBuilder(cfg, embedder).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Greater(t, stats.Passages, 0)
	assert.Equal(t, embed.StaticDimensions, stats.Dimensions)
	assert.NotEmpty(t, stats.BuildID)

	bundle, err := store.OpenBundle(cfg.Paths.IndexDir)
	require.NoError(t, err)
	defer func() { _ = bundle.Close() }()

	assert.Equal(t, stats.Passages, bundle.Manifest.Passages)
	assert.Equal(t, "static", bundle.Manifest.Model)
	assert.Equal(t, cfg.Chunk.Size, bundle.Manifest.ChunkSize)
	assert.Equal(t, stats.Passages, bundle.Vectors.Count())

	// Passage IDs are positional and passages stay in document order.
	for i, p := range bundle.Passages {
		assert.Equal(t, i, p.ID)
	}
	assert.Equal(t, "library.txt", bundle.Passages[0].SourceID, "documents are processed in sorted order")
}

func TestBuilder_EmptyCorpusFails(t *testing.T) {
	cfg := testConfig(t)

	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	_, err := NewBuilder(cfg, embedder).Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmptyCorpus, apperrors.GetCode(err))
	assert.True(t, apperrors.IsFatal(err))

	_, statErr := store.ReadManifest(cfg.Paths.IndexDir)
	assert.Error(t, statErr, "failed build must not leave a bundle behind")
}

func TestBuilder_WhitespaceOnlyCorpusFails(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "blank.txt", "   \n\n  \n")

	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	_, err := NewBuilder(cfg, embedder).Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmptyCorpus, apperrors.GetCode(err))
}

func TestBuilder_InvalidConfigFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunk.Overlap = cfg.Chunk.Size // invalid

	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()

	_, err := NewBuilder(cfg, embedder).Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetCode(err))
}

func TestBuilder_RebuildReplacesBundle(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg, "a.txt", "First version of the only document.")

	embedder := embed.NewStaticEmbedder()
	defer func() { _ = embedder.Close() }()
	builder := NewBuilder(cfg, embedder)

	first, err := builder.Build(context.Background())
	require.NoError(t, err)

	writeDoc(t, cfg, "b.txt", "A second document appears.\n\nWith two paragraphs in it.")
	second, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, 2, second.Documents)

	bundle, err := store.OpenBundle(cfg.Paths.IndexDir)
	require.NoError(t, err)
	defer func() { _ = bundle.Close() }()
	assert.Equal(t, second.BuildID, bundle.Manifest.BuildID)
}

func TestBuildLock_SecondAcquireFails(t *testing.T) {
	indexDir := filepath.Join(t.TempDir(), "index")

	first := NewBuildLock(indexDir)
	require.NoError(t, first.Acquire())
	defer func() { _ = first.Release() }()

	second := NewBuildLock(indexDir)
	err := second.Acquire()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBuildLocked, apperrors.GetCode(err))

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}
