package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/configs"
	"github.com/askdocs/askdocs/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Init writes a commented askdocs.yaml into the current directory and
creates the corpus directory it points at. Edit the file, drop your
documents into the corpus directory, then run 'askdocs build'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultConfigFile
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Paths.CorpusDir, 0o755); err != nil {
				return fmt.Errorf("create corpus dir: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "add documents to %s/ and run: askdocs build\n", cfg.Paths.CorpusDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
