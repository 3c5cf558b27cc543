package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
)

// Transactor выполняет fn в одной транзакции хранилища каталога.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogSnapshotProvider отдаёт снимок каталога в порядке вставки.
type CatalogSnapshotProvider interface {
	Snapshot(ctx context.Context) ([]domain.CatalogEntry, error)
}

type CatalogRepository interface {
	CatalogSnapshotProvider
	Upsert(ctx context.Context, entry *domain.CatalogEntry, categoryID int64) (*domain.CatalogEntry, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding domain.Embedding, modelVersion string) error
	DeleteAll(ctx context.Context) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// EmbeddingRepository — копия векторов каталога в векторном хранилище.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, entries []domain.CatalogEntry) error
	DeleteAll(ctx context.Context) error
}

// CacheRepository кэширует снимок каталога.
type CacheRepository interface {
	GetSnapshot(ctx context.Context) ([]domain.CatalogEntry, bool, error)
	SetSnapshot(ctx context.Context, entries []domain.CatalogEntry) error
	Invalidate(ctx context.Context) error
}
