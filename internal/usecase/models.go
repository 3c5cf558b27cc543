package usecase

import "github.com/DRSN-tech/visual-matcher/internal/domain"

// MATCH USECASE

// MatchReq — запрос на поиск похожих товаров.
type MatchReq struct {
	Input domain.ImageInput
}

// MatchRes — отсортированная выдача и диагностика пропущенных записей каталога.
type MatchRes struct {
	Matches     []domain.MatchResult
	Skipped     SkipStats
	CatalogSize int
}

// SkipStats считает записи каталога, не участвовавшие в ранжировании.
type SkipStats struct {
	DimensionMismatch int
	Degenerate        int
}

func (s SkipStats) Total() int {
	return s.DimensionMismatch + s.Degenerate
}

// CATALOG USECASE

// SeedReq — загрузка каталога из директории вида <dir>/<category>/<file>.
type SeedReq struct {
	Dir   string
	Reset bool // удалить текущий каталог перед загрузкой
	// OnStart получает число найденных файлов, OnItem вызывается после обработки каждого (для прогресса в CLI).
	OnStart func(total int)
	OnItem  func()
}

// IngestReport — итог загрузки или перевекторизации каталога.
type IngestReport struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []string
}

// ReembedReq — перевекторизация всего каталога.
type ReembedReq struct {
	OnStart func(total int)
	OnItem  func()
}

// CatalogImage — изображение товара, прочитанное с диска при загрузке каталога.
type CatalogImage struct {
	Data     []byte
	MimeType string
	Size     int64
	Name     string // имя файла (для логов и ключа объекта)
}

// INFRASTRUCTURE

// VectorizeReq — запрос на векторизацию изображений.
type VectorizeReq struct {
	Images [][]byte
}

// VectorizeRes — результат векторизации одного изображения.
type VectorizeRes struct {
	Vector       domain.Embedding
	ModelVersion string
}

// UploadImagesReq — запрос на загрузку изображений товара.
type UploadImagesReq struct {
	Prefix string
	Images []CatalogImage
}

// UploadImagesRes — ключи загруженных объектов в порядке Images.
type UploadImagesRes struct {
	ImagesKeys []string
}

// CatalogChangedEvent — событие об изменении каталога.
type CatalogChangedEvent struct {
	Operation string // seed | reembed
	Succeeded int
	Failed    int
}

// MAPPERS

func NewMatchReq(input domain.ImageInput) *MatchReq {
	return &MatchReq{Input: input}
}

func NewMatchRes(matches []domain.MatchResult, skipped SkipStats, catalogSize int) *MatchRes {
	return &MatchRes{
		Matches:     matches,
		Skipped:     skipped,
		CatalogSize: catalogSize,
	}
}

func NewVectorizeReq(images [][]byte) *VectorizeReq {
	return &VectorizeReq{Images: images}
}

func NewVectorizeRes(vector []float32, modelVersion string) *VectorizeRes {
	return &VectorizeRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewUploadImagesReq(prefix string, images []CatalogImage) *UploadImagesReq {
	return &UploadImagesReq{
		Prefix: prefix,
		Images: images,
	}
}

func NewUploadImagesRes(imagesKeys []string) *UploadImagesRes {
	return &UploadImagesRes{ImagesKeys: imagesKeys}
}

func NewCatalogImage(data []byte, mimeType string, size int64, name string) *CatalogImage {
	return &CatalogImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewCatalogChangedEvent(operation string, report *IngestReport) *CatalogChangedEvent {
	return &CatalogChangedEvent{
		Operation: operation,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	}
}
