package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/store"
	"github.com/askdocs/askdocs/internal/ui"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show details of the current index bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			manifest, err := store.ReadManifest(cfg.Paths.IndexDir)
			if err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).PrintManifest(cfg.Paths.IndexDir, manifest)
			return nil
		},
	}
}
