package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/embed"
	"github.com/askdocs/askdocs/internal/search"
	"github.com/askdocs/askdocs/internal/store"
	"github.com/askdocs/askdocs/internal/ui"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	limit    int
	fusion   string
	rerank   bool
	noRerank bool
	format   string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Search the indexed corpus",
		Long: `Query runs hybrid retrieval over the current index bundle: dense
and BM25 search in parallel, rank fusion, and an optional rerank of
the top candidates.

Examples:
  askdocs query "when does the pool open"
  askdocs query "cancellation policy" --limit 3
  askdocs query "refunds" --fusion weighted
  askdocs query "opening hours" --rerank --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.fusion, "fusion", "", "Fusion policy: rrf or weighted (default from config)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank top candidates with the cross-encoder service")
	cmd.Flags().BoolVar(&opts.noRerank, "no-rerank", false, "Disable reranking even if enabled in config")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, query string, opts queryOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyQueryFlags(cfg, opts); err != nil {
		return err
	}

	bundle, err := store.OpenBundle(cfg.Paths.IndexDir)
	if err != nil {
		return err
	}
	defer func() { _ = bundle.Close() }()

	// The query must be embedded in the same space the bundle was built in.
	embedder, err := embed.NewQueryEmbedder(ctx, cfg, bundle.Manifest.Model, bundle.Manifest.Dimensions)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	var reranker search.Reranker
	if cfg.Retrieval.UseReranker {
		reranker = search.NewHTTPReranker(cfg.Retrieval.Reranker)
	}

	retriever, err := search.NewRetriever(bundle, embedder, reranker, cfg.Retrieval)
	if err != nil {
		return err
	}

	results, err := retriever.Search(ctx, query, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return printJSON(cmd, query, results)
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintResults(query, results)
	return nil
}

// applyQueryFlags lets CLI flags override the configured retrieval
// policy for a single query.
func applyQueryFlags(cfg *config.Config, opts queryOptions) error {
	if opts.fusion != "" {
		if opts.fusion != config.FusionRRF && opts.fusion != config.FusionWeighted {
			return fmt.Errorf("unknown fusion policy %q (want %s or %s)", opts.fusion, config.FusionRRF, config.FusionWeighted)
		}
		cfg.Retrieval.Fusion = opts.fusion
	}
	if opts.rerank {
		cfg.Retrieval.UseReranker = true
	}
	if opts.noRerank {
		cfg.Retrieval.UseReranker = false
	}
	return nil
}

// queryResult is the JSON shape for one search hit.
type queryResult struct {
	Rank     int     `json:"rank"`
	ID       int     `json:"id"`
	Source   string  `json:"source"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Score    float64 `json:"score"`
	Reranked bool    `json:"reranked,omitempty"`
	Text     string  `json:"text"`
}

func printJSON(cmd *cobra.Command, query string, results []search.Result) error {
	out := struct {
		Query   string        `json:"query"`
		Results []queryResult `json:"results"`
	}{Query: query, Results: make([]queryResult, 0, len(results))}

	for i, r := range results {
		out.Results = append(out.Results, queryResult{
			Rank:     i + 1,
			ID:       r.Passage.ID,
			Source:   r.Passage.SourceID,
			Start:    r.Passage.Start,
			End:      r.Passage.End,
			Score:    r.Score,
			Reranked: r.Reranked,
			Text:     r.Passage.Text,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
