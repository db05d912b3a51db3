package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/embed"
	"github.com/askdocs/askdocs/internal/index"
	"github.com/askdocs/askdocs/internal/ui"
	"github.com/askdocs/askdocs/internal/watch"
)

// buildOptions holds CLI flags for build.
type buildOptions struct {
	watch    bool
	debounce time.Duration
}

func newBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the retrieval index from the corpus",
		Long: `Build chunks every document under the corpus directory, embeds the
passages, and writes a fresh index bundle. The previous bundle stays
live until the new one is complete, then is swapped atomically.

With --watch the command keeps running and rebuilds whenever corpus
files change, collapsing bursts of changes into a single rebuild.

Examples:
  askdocs build
  askdocs build --watch
  askdocs build --watch --debounce 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild automatically when corpus files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a watch-mode rebuild")

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, opts buildOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := ui.NewPrinter(cmd.OutOrStdout())

	embedder, err := embed.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	builder := index.NewBuilder(cfg, embedder)

	stats, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	out.PrintBuildStats(stats)

	if !opts.watch {
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nwatching %s for changes (ctrl-c to stop)\n", cfg.Paths.CorpusDir)

	w := watch.New(cfg.Paths.CorpusDir, opts.debounce, func(ctx context.Context) error {
		stats, err := builder.Build(ctx)
		if err != nil {
			out.PrintWarning("rebuild failed: " + err.Error())
			return err
		}
		out.PrintBuildStats(stats)
		return nil
	})

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("watch_stopped")
	return nil
}
