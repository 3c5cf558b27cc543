package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
)

// ImageAcquirer получает исходные байты изображения из загруженного файла или по URL.
type ImageAcquirer interface {
	Acquire(ctx context.Context, input domain.ImageInput) ([]byte, error)
}

// ImageNormalizer декодирует байты и приводит изображение к каноническому виду.
type ImageNormalizer interface {
	Normalize(data []byte) (*domain.CanonicalImage, error)
}

// EmbeddingGenerator — внешний экстрактор признаков: канонические байты -> вектор.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, canonical []byte) (*VectorizeRes, error)
}

// MlServiceInfra — пакетная векторизация для загрузки каталога.
type MlServiceInfra interface {
	EmbeddingGenerator
	VectorizeRequest(ctx context.Context, req *VectorizeReq) ([]VectorizeRes, error)
}

// ImagesInfra управляет изображениями каталога в объектном хранилище.
type ImagesInfra interface {
	UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error)
	DownloadImage(ctx context.Context, key string) ([]byte, error)
	CleanupImages(keys []string)
}

// EventProducer публикует события изменения каталога.
type EventProducer interface {
	PublishCatalogChanged(ctx context.Context, event *CatalogChangedEvent) error
}
