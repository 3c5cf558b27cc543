package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DRSN-tech/visual-matcher/internal/app"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	seedDir   string
	seedReset bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog images from a directory",
	Long: `Загружает изображения вида <dir>/<category>/<file>.{jpg,jpeg,png}.
Имя товара берётся из имени файла, категория из имени папки.
Ошибки отдельных файлов попадают в отчёт, обход продолжается.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "images", "catalog images directory")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "delete the current catalog before loading")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	dir, err := filepath.Abs(seedDir)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	bar := newProgress("Seeding")

	return withCatalog(cmd, func(ctx context.Context, catalog *app.Catalog) error {
		report, err := catalog.UC.Seed(ctx, &usecase.SeedReq{
			Dir:     dir,
			Reset:   seedReset,
			OnStart: bar.start,
			OnItem:  bar.step,
		})
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		printReport(cmd.OutOrStdout(), "Seed completed", report)
		return nil
	})
}
