package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdocs/askdocs/internal/config"
	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// NewEmbedder creates the embedder selected by the configuration and
// wraps it in the LRU cache. The "ollama" provider falls back to the
// static embedder when Ollama is unreachable, with a warning: degraded
// embeddings beat a hard failure for local-first use.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cfg.Embeddings.CacheSize), nil
}

func newProvider(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.Embeddings.Provider {
	case config.ProviderStatic:
		return NewStaticEmbedder(), nil

	case config.ProviderOllama:
		e, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
			Timeout:    DefaultTimeout,
		})
		if err != nil {
			slog.Warn("embedder_fallback",
				slog.String("from", config.ProviderOllama),
				slog.String("to", config.ProviderStatic),
				slog.String("error", err.Error()))
			return NewStaticEmbedder(), nil
		}
		return e, nil

	default:
		return nil, apperrors.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q", cfg.Embeddings.Provider), nil)
	}
}

// NewQueryEmbedder creates an embedder for query-time use and verifies it
// matches the model and dimension recorded at build time. A mismatch
// would silently degrade every search, so it fails instead.
func NewQueryEmbedder(ctx context.Context, cfg *config.Config, wantModel string, wantDims int) (Embedder, error) {
	e, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if e.ModelName() != wantModel {
		_ = e.Close()
		return nil, apperrors.New(apperrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("index was built with model %q but embedder provides %q", wantModel, e.ModelName()), nil).
			WithSuggestion("rebuild the index or restore the original embedding model")
	}
	if wantDims > 0 && e.Dimensions() != 0 && e.Dimensions() != wantDims {
		_ = e.Close()
		return nil, apperrors.New(apperrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("index dimension %d does not match embedder dimension %d", wantDims, e.Dimensions()), nil).
			WithSuggestion("rebuild the index with the current embedding model")
	}

	return e, nil
}

// ProbeTimeout bounds availability probes so query startup never hangs
// on a dead endpoint.
const ProbeTimeout = 3 * time.Second
