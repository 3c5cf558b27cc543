package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	OperationSeed    = "seed"
	OperationReembed = "reembed"
)

var seedExtensions = []string{".jpg", ".jpeg", ".png"}

// CatalogUseCase наполняет каталог: загрузка из директории и перевекторизация.
// imagesInfra, embeddingRepo, cacheRepo и producer могут быть nil.
type CatalogUseCase struct {
	catalogRepo   CatalogRepository
	categoryRepo  CategoryRepository
	tx            Transactor
	acquirer      ImageAcquirer
	normalizer    ImageNormalizer
	mlService     MlServiceInfra
	imagesInfra   ImagesInfra
	embeddingRepo EmbeddingRepository
	cacheRepo     CacheRepository
	producer      EventProducer
	logger        logger.Logger
}

func NewCatalogUC(
	catalogRepo CatalogRepository,
	categoryRepo CategoryRepository,
	tx Transactor,
	acquirer ImageAcquirer,
	normalizer ImageNormalizer,
	mlService MlServiceInfra,
	imagesInfra ImagesInfra,
	embeddingRepo EmbeddingRepository,
	cacheRepo CacheRepository,
	producer EventProducer,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		catalogRepo:   catalogRepo,
		categoryRepo:  categoryRepo,
		tx:            tx,
		acquirer:      acquirer,
		normalizer:    normalizer,
		mlService:     mlService,
		imagesInfra:   imagesInfra,
		embeddingRepo: embeddingRepo,
		cacheRepo:     cacheRepo,
		producer:      producer,
		logger:        logger,
	}
}

// seedItem — файл каталога и всё, что удалось о нём узнать до записи.
type seedItem struct {
	path      string
	name      string
	category  string
	data      []byte
	mime      string
	canonical []byte
	vector    *VectorizeRes
}

// Seed обходит <dir>/<category>/<file> и сохраняет каждый товар.
// Ошибка отдельного файла попадает в отчёт и не останавливает обход.
func (c *CatalogUseCase) Seed(ctx context.Context, req *SeedReq) (*IngestReport, error) {
	const op = "CatalogUseCase.Seed"

	groups, total, err := scanCatalogDir(req.Dir)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.OnStart != nil {
		req.OnStart(total)
	}

	if req.Reset {
		if err := c.reset(ctx); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	report := &IngestReport{Total: total}
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, e.Wrap(op, err)
		}
		c.seedCategory(ctx, group, report, req.OnItem)
	}

	c.afterIngest(ctx, OperationSeed, report)
	return report, nil
}

// seedCategory векторизует категорию одним батчем; при отказе батча каждый файл
// векторизуется отдельно, чтобы ошибка одного не роняла остальные.
func (c *CatalogUseCase) seedCategory(ctx context.Context, items []*seedItem, report *IngestReport, onItem func()) {
	done := func() {
		if onItem != nil {
			onItem()
		}
	}

	ready := make([]*seedItem, 0, len(items))
	for _, item := range items {
		if err := c.prepare(item); err != nil {
			report.fail(item.path, err)
			c.logger.Warnf("Skipping %s: %v", item.path, err)
			done()
			continue
		}
		ready = append(ready, item)
	}

	if len(ready) == 0 {
		return
	}

	images := make([][]byte, len(ready))
	for i, item := range ready {
		images[i] = item.canonical
	}

	if vectors, err := c.mlService.VectorizeRequest(ctx, NewVectorizeReq(images)); err == nil {
		for i := range ready {
			ready[i].vector = &vectors[i]
		}
	} else {
		c.logger.Warnf("Batch vectorization of %q failed, falling back to single images: %v", ready[0].category, err)
	}

	for _, item := range ready {
		if err := c.store(ctx, item); err != nil {
			report.fail(item.path, err)
			c.logger.Warnf("Failed to ingest %s: %v", item.path, err)
		} else {
			report.Succeeded++
			c.logger.Infof("Inserted %s (%s)", item.name, item.category)
		}
		done()
	}
}

// prepare читает файл и приводит изображение к каноническому виду.
func (c *CatalogUseCase) prepare(item *seedItem) error {
	data, err := os.ReadFile(item.path)
	if err != nil {
		return err
	}

	canonical, err := c.normalizer.Normalize(data)
	if err != nil {
		return err
	}

	item.data = data
	item.mime = mimetype.Detect(data).String()
	item.canonical = canonical.Bytes
	return nil
}

// store дополучает вектор, загружает изображение и сохраняет товар в транзакции.
// Если транзакция не прошла, загруженный объект удаляется.
func (c *CatalogUseCase) store(ctx context.Context, item *seedItem) (err error) {
	const op = "CatalogUseCase.store"

	if item.vector == nil {
		if item.vector, err = c.mlService.Embed(ctx, item.canonical); err != nil {
			return e.Wrap(op, err)
		}
	}

	vector, err := item.vector.Vector.Normalize()
	if err != nil {
		return e.Wrap(op, err)
	}

	imageRef, uploadedKey, err := c.uploadImage(ctx, item)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && uploadedKey != "" {
			c.logger.Warnf("Cleaning up orphaned image after transaction failure. key: %s", uploadedKey)
			c.imagesInfra.CleanupImages([]string{uploadedKey})
		}
	}()

	var saved *domain.CatalogEntry
	err = c.tx.WithinTx(ctx, func(ctx context.Context) error {
		category, err := c.categoryRepo.Create(ctx, domain.NewCategory(item.category))
		if err != nil {
			return err
		}

		entry := domain.NewCatalogEntry(item.name, category.Name, imageRef, vector, item.vector.ModelVersion)
		saved, err = c.catalogRepo.Upsert(ctx, entry, category.ID)
		if err != nil {
			return err
		}
		saved.Category = category.Name
		return nil
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	c.mirror(ctx, saved)
	return nil
}

// uploadImage возвращает ссылку на изображение для записи каталога.
// Без объектного хранилища ссылкой служит путь к файлу.
func (c *CatalogUseCase) uploadImage(ctx context.Context, item *seedItem) (ref string, key string, err error) {
	if c.imagesInfra == nil {
		return filepath.ToSlash(item.path), "", nil
	}

	image := NewCatalogImage(item.data, item.mime, int64(len(item.data)), filepath.Base(item.path))
	res, err := c.imagesInfra.UploadImages(ctx, NewUploadImagesReq(objectPrefix(item.category), []CatalogImage{*image}))
	if err != nil {
		return "", "", err
	}

	return res.ImagesKeys[0], res.ImagesKeys[0], nil
}

// Reembed заново получает изображение каждого товара, векторизует и обновляет вектор.
func (c *CatalogUseCase) Reembed(ctx context.Context, req *ReembedReq) (*IngestReport, error) {
	const op = "CatalogUseCase.Reembed"

	entries, err := c.catalogRepo.Snapshot(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.OnStart != nil {
		req.OnStart(len(entries))
	}

	report := &IngestReport{Total: len(entries)}
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return report, e.Wrap(op, err)
		}

		entry := &entries[i]
		if err := c.reembedOne(ctx, entry); err != nil {
			report.fail(entry.Name, err)
			c.logger.Warnf("Failed to re-embed %q (id=%d): %v", entry.Name, entry.ID, err)
		} else {
			report.Succeeded++
		}

		if req.OnItem != nil {
			req.OnItem()
		}
	}

	c.afterIngest(ctx, OperationReembed, report)
	return report, nil
}

func (c *CatalogUseCase) reembedOne(ctx context.Context, entry *domain.CatalogEntry) error {
	const op = "CatalogUseCase.reembedOne"

	data, err := c.loadImage(ctx, entry.ImageReference)
	if err != nil {
		return e.Wrap(op, err)
	}

	canonical, err := c.normalizer.Normalize(data)
	if err != nil {
		return e.Wrap(op, err)
	}

	res, err := c.mlService.Embed(ctx, canonical.Bytes)
	if err != nil {
		return e.Wrap(op, err)
	}

	vector, err := res.Vector.Normalize()
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		return c.catalogRepo.UpdateEmbedding(ctx, entry.ID, vector, res.ModelVersion)
	}); err != nil {
		return e.Wrap(op, err)
	}

	entry.Embedding = vector
	entry.ModelVersion = res.ModelVersion
	c.mirror(ctx, entry)
	return nil
}

// loadImage: http(s)-ссылки качаются через ImageAcquirer, остальное — ключи объектного хранилища.
func (c *CatalogUseCase) loadImage(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return c.acquirer.Acquire(ctx, domain.NewURLInput(ref))
	}

	if c.imagesInfra != nil {
		return c.imagesInfra.DownloadImage(ctx, ref)
	}

	return os.ReadFile(filepath.FromSlash(ref))
}

func (c *CatalogUseCase) reset(ctx context.Context) error {
	if err := c.tx.WithinTx(ctx, c.catalogRepo.DeleteAll); err != nil {
		return err
	}

	if c.embeddingRepo != nil {
		if err := c.embeddingRepo.DeleteAll(ctx); err != nil {
			return err
		}
	}

	c.logger.Infof("Catalog cleared")
	return nil
}

// mirror копирует запись в векторное хранилище; отказ не откатывает основную запись.
func (c *CatalogUseCase) mirror(ctx context.Context, entry *domain.CatalogEntry) {
	if c.embeddingRepo == nil || entry == nil {
		return
	}

	if err := c.embeddingRepo.Upsert(ctx, []domain.CatalogEntry{*entry}); err != nil {
		c.logger.Warnf("Failed to mirror catalog entry id=%d to vector store: %v", entry.ID, err)
	}
}

// afterIngest сбрасывает кэш снимка и публикует событие. Ошибки только логируются.
func (c *CatalogUseCase) afterIngest(ctx context.Context, operation string, report *IngestReport) {
	const op = "CatalogUseCase.afterIngest"

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Invalidate(ctx); err != nil {
			c.logger.Warnf("Failed to invalidate catalog cache: %v", e.Wrap(op, err))
		}
	}

	if c.producer != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := c.producer.PublishCatalogChanged(pubCtx, NewCatalogChangedEvent(operation, report)); err != nil {
			c.logger.Warnf("Failed to publish catalog change event: %v", e.Wrap(op, err))
		}
	}

	c.logger.Infof("Catalog %s finished: total=%d succeeded=%d failed=%d",
		operation, report.Total, report.Succeeded, report.Failed)
}

func (r *IngestReport) fail(item string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", item, err))
}

// scanCatalogDir собирает файлы <dir>/<category>/<file>.{jpg,jpeg,png}, сгруппированные по категориям.
// Порядок детерминирован: категории и файлы по имени.
func scanCatalogDir(dir string) ([][]*seedItem, int, error) {
	categories, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var (
		groups [][]*seedItem
		total  int
	)
	for _, category := range categories {
		if !category.IsDir() {
			continue
		}

		files, err := os.ReadDir(filepath.Join(dir, category.Name()))
		if err != nil {
			return nil, 0, err
		}

		var group []*seedItem
		for _, file := range files {
			ext := strings.ToLower(filepath.Ext(file.Name()))
			if file.IsDir() || !slices.Contains(seedExtensions, ext) {
				continue
			}

			group = append(group, &seedItem{
				path:     filepath.Join(dir, category.Name(), file.Name()),
				name:     CleanProductName(file.Name()),
				category: category.Name(),
			})
		}

		if len(group) > 0 {
			groups = append(groups, group)
			total += len(group)
		}
	}

	return groups, total, nil
}

// CleanProductName превращает имя файла в название товара: "red_running-shoe.jpg" -> "Red Running-Shoe".
func CleanProductName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	return cases.Title(language.Und).String(name)
}

func objectPrefix(category string) string {
	return strings.ReplaceAll(strings.TrimSpace(category), " ", "_")
}
