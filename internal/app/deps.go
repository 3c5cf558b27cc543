package app

import (
	"context"
	"time"

	config "github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/visual-matcher/internal/infrastructure/minio"
	ml_service "github.com/DRSN-tech/visual-matcher/internal/infrastructure/ml-service"
	s3Repo "github.com/DRSN-tech/visual-matcher/internal/repository/minio"
	qdrantRepo "github.com/DRSN-tech/visual-matcher/internal/repository/qdrant"
	"github.com/DRSN-tech/visual-matcher/internal/repository/redis"
	redisConv "github.com/DRSN-tech/visual-matcher/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/closer"
	"github.com/DRSN-tech/visual-matcher/pkg/clients"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/DRSN-tech/visual-matcher/pkg/postgres"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const initTimeout = 10 * time.Second

// deps собирает подключения к внешним системам и регистрирует их закрытие в closer.
type deps struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer
}

func newDeps(cfg *config.Config, logger logger.Logger, c *closer.Closer) *deps {
	return &deps{cfg: cfg, logger: logger, closer: c}
}

func (d *deps) initPGDB(ctx context.Context) (*postgres.PgDatabase, error) {
	connCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	db, err := postgres.Connect(connCtx, d.cfg.Db)
	if err != nil {
		d.logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.AddFunc("postgres", db.Close)

	if err := db.RunMigrations(d.logger); err != nil {
		d.logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

func (d *deps) initMLService() (*ml_service.MLService, error) {
	conn, err := grpc.NewClient(
		d.cfg.Ml.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()), // ML-сервис доступен только во внутренней сети
	)
	if err != nil {
		d.logger.Errorf(err, "failed to initialize grpc client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.Add("ml grpc conn", func(context.Context) error { return conn.Close() })

	return ml_service.NewMLService(conn, d.cfg.Ml, d.logger), nil
}

// initQdrant возвращает nil, если Qdrant не настроен.
func (d *deps) initQdrant(ctx context.Context) (*qdrantRepo.EmbeddingRepo, error) {
	if !d.cfg.Qdrant.Enabled {
		return nil, nil
	}

	client, err := clients.NewQdrantClient(d.cfg.Qdrant)
	if err != nil {
		d.logger.Errorf(err, "failed to initialize qdrant")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.Add("qdrant", func(context.Context) error { return client.Client.Close() })

	qCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureCollection(qCtx, client); err != nil {
		d.logger.Errorf(err, "failed to ensure qdrant collection")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return qdrantRepo.NewEmbeddingRepo(client, d.cfg.Qdrant), nil
}

// initCache возвращает nil, если кэш снимка выключен.
func (d *deps) initCache(ctx context.Context) (*redis.CacheRepo, error) {
	if !d.cfg.Catalog.CacheEnabled {
		return nil, nil
	}

	client := clients.NewRedisClient(d.cfg.Redis)
	d.closer.Add("redis", func(context.Context) error { return client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		d.logger.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return redis.NewCacheRepo(client, redisConv.NewCatalogEntryConverterImpl(), d.cfg.Catalog.CacheTTL, d.logger), nil
}

// initImages возвращает nil, если MinIO не настроен: изображения каталога остаются ссылками на файлы.
func (d *deps) initImages(ctx context.Context, shutdownCtx context.Context) (*minioInfra.MinioInfrastructure, error) {
	if err := d.cfg.Minio.Validate(); err != nil {
		d.logger.Warnf("object storage disabled: %v", err)
		return nil, nil
	}

	minioClient, err := clients.NewMinIOClient(d.cfg.Minio)
	if err != nil {
		d.logger.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	bucketCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureBucket(bucketCtx, minioClient, d.cfg.Minio.BucketName); err != nil {
		d.logger.Errorf(err, "failed to initialize MinIO bucket")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	imageRepo := s3Repo.NewImageRepo(minioClient, d.cfg.Minio)
	images := minioInfra.NewMinioInfrastructure(imageRepo, d.cfg.Minio, d.logger, shutdownCtx)
	d.closer.Add("minio cleanup", images.WaitForCleanup)

	return images, nil
}

// initProducer возвращает nil, если брокеры Kafka не заданы.
func (d *deps) initProducer() (*kafka.Producer, error) {
	if !d.cfg.Kafka.Enabled() {
		return nil, nil
	}

	producer, err := kafka.NewProducer(d.logger, d.cfg.Kafka)
	if err != nil {
		d.logger.Errorf(err, "failed to initialize kafka producer")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopic(initTimeout); err != nil {
		d.logger.Warnf("failed to ensure kafka topic %s: %v", d.cfg.Kafka.Topic, err)
	}

	return producer, nil
}

// cacheOrNil не даёт типизированному nil попасть в интерфейс.
func cacheOrNil(c *redis.CacheRepo) usecase.CacheRepository {
	if c == nil {
		return nil
	}
	return c
}
