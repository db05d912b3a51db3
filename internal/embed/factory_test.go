package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/config"
	apperrors "github.com/askdocs/askdocs/internal/errors"
)

func TestNewEmbedder_StaticProvider(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = config.ProviderStatic

	e, err := NewEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.IsType(t, &CachedEmbedder{}, e)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = "openai"

	_, err := NewEmbedder(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetCode(err))
}

func TestNewQueryEmbedder_ModelMismatch(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = config.ProviderStatic

	_, err := NewQueryEmbedder(context.Background(), cfg, "nomic-embed-text", 768)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDimensionMismatch, apperrors.GetCode(err))
}

func TestNewQueryEmbedder_MatchingModel(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Embeddings.Provider = config.ProviderStatic

	e, err := NewQueryEmbedder(context.Background(), cfg, "static", StaticDimensions)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, StaticDimensions, e.Dimensions())
}
