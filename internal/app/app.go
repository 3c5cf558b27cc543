package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/visual-matcher/internal/cfg"
	v1Http "github.com/DRSN-tech/visual-matcher/internal/delivery/v1/http"
	"github.com/DRSN-tech/visual-matcher/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/visual-matcher/internal/infrastructure/imaging"
	"github.com/DRSN-tech/visual-matcher/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/visual-matcher/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/closer"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const shutdownTimeout = 10 * time.Second

// App — HTTP-сервис поиска похожих товаров.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
}

func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	ctx := context.Background()
	c := closer.NewCloser(2 * time.Second)
	d := newDeps(cfg, logger, c)

	app, err := buildApp(ctx, d)
	if err != nil {
		if closeErr := c.Close(ctx); closeErr != nil {
			logger.Warnf("failed to release resources: %v", closeErr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return app, nil
}

func buildApp(ctx context.Context, d *deps) (*App, error) {
	snapshots, err := initSnapshotProvider(ctx, d)
	if err != nil {
		return nil, err
	}

	cacheRepo, err := d.initCache(ctx)
	if err != nil {
		return nil, err
	}

	ml, err := d.initMLService()
	if err != nil {
		return nil, err
	}

	matchUC := usecase.NewMatchUC(
		fetcher.NewHTTPFetcher(d.cfg.Fetcher, d.logger),
		imaging.NewNormalizer(d.cfg.Imaging),
		ml,
		snapshots,
		cacheOrNil(cacheRepo),
		d.cfg.Match.TopK,
		d.logger,
	)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, d.cfg.Http.MaxUploadBytes, d.logger)
	router.Init(matchUC)

	httpSrv := v1Http.NewServer(r, d.cfg.Http)
	d.closer.Add("http server", httpSrv.Stop)

	return &App{
		cfg:     d.cfg,
		logger:  d.logger,
		closer:  d.closer,
		httpSrv: httpSrv,
	}, nil
}

// initSnapshotProvider выбирает хранилище, из которого читается снимок каталога.
func initSnapshotProvider(ctx context.Context, d *deps) (usecase.CatalogSnapshotProvider, error) {
	switch d.cfg.Catalog.Backend {
	case config.CatalogBackendQdrant:
		embRepo, err := d.initQdrant(ctx)
		if err != nil {
			return nil, err
		}
		d.logger.Infof("catalog snapshot backend: qdrant")
		return embRepo, nil
	default:
		db, err := d.initPGDB(ctx)
		if err != nil {
			return nil, err
		}
		d.logger.Infof("catalog snapshot backend: postgres")
		return pgdb.NewCatalogRepo(db.Pool, pgdbConv.NewCatalogEntryConverterImpl()), nil
	}
}

// Run запускает HTTP-сервер и блокируется до сигнала завершения или фатальной ошибки.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("shutdown finished with errors: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
