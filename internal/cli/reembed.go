package cli

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/visual-matcher/internal/app"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/spf13/cobra"
)

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Recompute embeddings for every catalog item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bar := newProgress("Re-embedding")

		return withCatalog(cmd, func(ctx context.Context, catalog *app.Catalog) error {
			report, err := catalog.UC.Reembed(ctx, &usecase.ReembedReq{
				OnStart: bar.start,
				OnItem:  bar.step,
			})
			if err != nil {
				return fmt.Errorf("reembed failed: %w", err)
			}

			printReport(cmd.OutOrStdout(), "Re-embed completed", report)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reembedCmd)
}
