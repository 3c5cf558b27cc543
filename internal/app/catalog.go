package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/visual-matcher/internal/infrastructure/imaging"
	"github.com/DRSN-tech/visual-matcher/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/visual-matcher/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/closer"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/DRSN-tech/visual-matcher/pkg/tr"
	"github.com/jimlawless/whereami"
)

// Catalog — окружение процессов наполнения каталога (catalogctl).
type Catalog struct {
	UC     usecase.CatalogUC
	closer *closer.Closer
}

// NewCatalog подключает PostgreSQL и все настроенные вспомогательные хранилища.
// ctx ограничивает фоновую очистку объектов в MinIO.
func NewCatalog(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Catalog, error) {
	c := closer.NewCloser(2 * time.Second)
	d := newDeps(cfg, logger, c)

	uc, err := buildCatalogUC(ctx, d)
	if err != nil {
		if closeErr := c.Close(context.Background()); closeErr != nil {
			logger.Warnf("failed to release resources: %v", closeErr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Catalog{UC: uc, closer: c}, nil
}

func buildCatalogUC(ctx context.Context, d *deps) (*usecase.CatalogUseCase, error) {
	db, err := d.initPGDB(ctx)
	if err != nil {
		return nil, err
	}

	ml, err := d.initMLService()
	if err != nil {
		return nil, err
	}

	var (
		images    usecase.ImagesInfra
		vectors   usecase.EmbeddingRepository
		cacheRepo usecase.CacheRepository
		producer  usecase.EventProducer
	)

	imagesInfra, err := d.initImages(ctx, ctx)
	if err != nil {
		return nil, err
	}
	if imagesInfra != nil {
		images = imagesInfra
	}

	embRepo, err := d.initQdrant(ctx)
	if err != nil {
		return nil, err
	}
	if embRepo != nil {
		vectors = embRepo
	}

	cache, err := d.initCache(ctx)
	if err != nil {
		return nil, err
	}
	cacheRepo = cacheOrNil(cache)

	kafkaProducer, err := d.initProducer()
	if err != nil {
		return nil, err
	}
	if kafkaProducer != nil {
		producer = kafkaProducer
	}

	return usecase.NewCatalogUC(
		pgdb.NewCatalogRepo(db.Pool, pgdbConv.NewCatalogEntryConverterImpl()),
		pgdb.NewCategoryRepo(db.Pool, pgdbConv.NewCategoryConverterImpl()),
		tr.NewTransactor(db.Pool),
		fetcher.NewHTTPFetcher(d.cfg.Fetcher, d.logger),
		imaging.NewNormalizer(d.cfg.Imaging),
		ml,
		images,
		vectors,
		cacheRepo,
		producer,
		d.logger,
	), nil
}

// Close освобождает ресурсы в обратном порядке.
func (c *Catalog) Close(ctx context.Context) error {
	return c.closer.Close(ctx)
}
