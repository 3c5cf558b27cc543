package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/app"
	config "github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	log     logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Catalog ingestion for the Visual Product Matcher",
	Long: `catalogctl наполняет каталог товаров: загружает изображения из директории,
векторизует их через ML-сервис и сохраняет в хранилище каталога.

Примеры:
  catalogctl seed --dir images           # загрузить каталог из ./images
  catalogctl seed --dir images --reset   # пересоздать каталог с нуля
  catalogctl reembed                     # перевекторизовать весь каталог`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
				return fmt.Errorf("failed to set config file: %w", err)
			}
		}

		bootLog := logger.NewZerologLogger("info", "console")

		var err error
		cfg, err = config.Load(bootLog)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = logger.NewZerologLogger(cfg.Log.Level, "console")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment variables only)")
}

// withCatalog поднимает окружение каталога на время выполнения команды.
// SIGINT/SIGTERM отменяют ctx; уже записанные элементы остаются в каталоге.
func withCatalog(cmd *cobra.Command, fn func(ctx context.Context, catalog *app.Catalog) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := app.NewCatalog(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := catalog.Close(closeCtx); err != nil {
			log.Warnf("shutdown finished with errors: %v", err)
		}
	}()

	return fn(ctx, catalog)
}
