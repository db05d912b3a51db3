// Package config loads and validates the askdocs configuration.
//
// Configuration is layered: built-in defaults, then the YAML config file,
// then ASKDOCS_* environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "askdocs.yaml"

// Fusion policy names accepted in Retrieval.Fusion.
const (
	FusionRRF      = "rrf"
	FusionWeighted = "weighted"
)

// Embedding provider names accepted in Embeddings.Provider.
const (
	ProviderOllama = "ollama"
	ProviderStatic = "static"
)

// Config represents the complete askdocs configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	LogLevel   string           `yaml:"log_level"`
}

// PathsConfig locates the corpus and the index artifact bundle.
type PathsConfig struct {
	// CorpusDir is the directory scanned for documents at build time.
	CorpusDir string `yaml:"corpus_dir"`
	// IndexDir is the directory holding the persisted artifact bundle.
	IndexDir string `yaml:"index_dir"`
}

// ChunkConfig controls passage splitting.
type ChunkConfig struct {
	// Size is the target passage length in characters.
	Size int `yaml:"size"`
	// Overlap is the number of trailing characters shared between
	// consecutive passages. Must be smaller than Size.
	Overlap int `yaml:"overlap"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama" (default) or "static" (offline).
	Provider string `yaml:"provider"`
	// Model is the embedding model identifier. Part of the bundle key:
	// querying with a different model than the bundle was built with fails.
	Model string `yaml:"model"`
	// Dimensions is the embedding dimension (0 = auto-detect from provider).
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of passages embedded per request.
	BatchSize int `yaml:"batch_size"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
	// CacheSize is the query-embedding LRU cache capacity.
	CacheSize int `yaml:"cache_size"`
}

// RetrievalConfig configures hybrid retrieval and fusion.
type RetrievalConfig struct {
	// TopKDense is the candidate count requested from the vector index.
	TopKDense int `yaml:"top_k_dense"`
	// TopKBM25 is the candidate count requested from the lexical index.
	TopKBM25 int `yaml:"top_k_bm25"`
	// Fusion selects the rank fusion policy: "rrf" (default) or "weighted".
	// RRF is scale-free; weighted fusion sums raw scores that live on
	// unrelated scales, so it is only safe when calibration is known.
	Fusion string `yaml:"fusion"`
	// RRFConstant is the RRF smoothing parameter k (default: 60).
	RRFConstant int `yaml:"rrf_constant"`
	// AlphaDense is the dense score weight for weighted fusion.
	AlphaDense float64 `yaml:"alpha_dense"`
	// AlphaBM25 is the lexical score weight for weighted fusion.
	AlphaBM25 float64 `yaml:"alpha_bm25"`
	// UseReranker enables the cross-encoder rerank pass.
	UseReranker bool `yaml:"use_reranker"`
	// RerankWindow is the number of top fused candidates to rerank.
	RerankWindow int `yaml:"rerank_window"`
	// MaxResults is the default result count returned to callers.
	MaxResults int `yaml:"max_results"`
	// Reranker configures the cross-encoder scoring service.
	Reranker RerankerConfig `yaml:"reranker"`
}

// RerankerConfig configures the HTTP cross-encoder reranker.
type RerankerConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			CorpusDir: "docs",
			IndexDir:  "index",
		},
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 150,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   ProviderOllama,
			Model:      "nomic-embed-text",
			Dimensions: 0,
			BatchSize:  32,
			OllamaHost: "http://localhost:11434",
			CacheSize:  1000,
		},
		Retrieval: RetrievalConfig{
			TopKDense: 20,
			TopKBM25:  20,
			// RRF is the default: dense similarity and BM25 scores live on
			// unrelated scales and must not be summed without calibration.
			Fusion:       FusionRRF,
			RRFConstant:  60,
			AlphaDense:   0.6,
			AlphaBM25:    0.4,
			UseReranker:  false,
			RerankWindow: 10,
			MaxResults:   5,
			Reranker: RerankerConfig{
				Endpoint: "http://localhost:9659",
				Model:    "reranker-small",
				Timeout:  30 * time.Second,
			},
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigNotFound, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration invariants that must hold before a
// build starts. Violations are configuration errors, not runtime faults.
func (c *Config) Validate() error {
	if c.Paths.CorpusDir == "" {
		return apperrors.ConfigError("paths.corpus_dir must be set", nil)
	}
	if c.Paths.IndexDir == "" {
		return apperrors.ConfigError("paths.index_dir must be set", nil)
	}
	if c.Chunk.Size <= 0 {
		return apperrors.ConfigError(fmt.Sprintf("chunk.size must be positive, got %d", c.Chunk.Size), nil)
	}
	if c.Chunk.Overlap < 0 {
		return apperrors.ConfigError(fmt.Sprintf("chunk.overlap must not be negative, got %d", c.Chunk.Overlap), nil)
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		return apperrors.ConfigError(
			fmt.Sprintf("chunk.overlap (%d) must be smaller than chunk.size (%d)", c.Chunk.Overlap, c.Chunk.Size), nil).
			WithDetail("chunk_size", strconv.Itoa(c.Chunk.Size)).
			WithDetail("chunk_overlap", strconv.Itoa(c.Chunk.Overlap)).
			WithSuggestion("set chunk.overlap smaller than chunk.size")
	}
	switch c.Retrieval.Fusion {
	case FusionRRF, FusionWeighted:
	default:
		return apperrors.ConfigError(fmt.Sprintf("retrieval.fusion must be %q or %q, got %q",
			FusionRRF, FusionWeighted, c.Retrieval.Fusion), nil)
	}
	if c.Retrieval.RRFConstant <= 0 {
		return apperrors.ConfigError(fmt.Sprintf("retrieval.rrf_constant must be positive, got %d", c.Retrieval.RRFConstant), nil)
	}
	if c.Retrieval.Fusion == FusionWeighted && c.Retrieval.AlphaDense < 0 {
		return apperrors.ConfigError("retrieval.alpha_dense must not be negative", nil)
	}
	if c.Retrieval.Fusion == FusionWeighted && c.Retrieval.AlphaBM25 < 0 {
		return apperrors.ConfigError("retrieval.alpha_bm25 must not be negative", nil)
	}
	if c.Retrieval.RerankWindow <= 0 {
		return apperrors.ConfigError(fmt.Sprintf("retrieval.rerank_window must be positive, got %d", c.Retrieval.RerankWindow), nil)
	}
	switch c.Embeddings.Provider {
	case ProviderOllama, ProviderStatic:
	default:
		return apperrors.ConfigError(fmt.Sprintf("embeddings.provider must be %q or %q, got %q",
			ProviderOllama, ProviderStatic, c.Embeddings.Provider), nil)
	}
	return nil
}

// applyEnvOverrides applies ASKDOCS_* environment variables on top of the
// loaded values. Unparseable numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASKDOCS_CORPUS_DIR"); v != "" {
		c.Paths.CorpusDir = v
	}
	if v := os.Getenv("ASKDOCS_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}
	if v := os.Getenv("ASKDOCS_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("ASKDOCS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("ASKDOCS_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("ASKDOCS_FUSION"); v != "" {
		c.Retrieval.Fusion = v
	}
	if v, ok := envInt("ASKDOCS_CHUNK_SIZE"); ok {
		c.Chunk.Size = v
	}
	if v, ok := envInt("ASKDOCS_CHUNK_OVERLAP"); ok {
		c.Chunk.Overlap = v
	}
	if v, ok := envInt("ASKDOCS_RRF_CONSTANT"); ok {
		c.Retrieval.RRFConstant = v
	}
	if v := os.Getenv("ASKDOCS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
