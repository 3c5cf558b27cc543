package domain

import "time"

// CatalogEntry описывает товар каталога с предрассчитанным эмбеддингом.
// Ядро только читает снимки каталога и никогда их не изменяет.
type CatalogEntry struct {
	ID             int64
	Name           string
	Category       string
	ImageReference string // ключ объекта в S3 или http(s) URL
	Embedding      Embedding
	ModelVersion   string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func NewCatalogEntry(name string, category string, imageReference string, embedding Embedding, modelVersion string) *CatalogEntry {
	return &CatalogEntry{
		Name:           name,
		Category:       category,
		ImageReference: imageReference,
		Embedding:      embedding,
		ModelVersion:   modelVersion,
	}
}
