package converter

import "github.com/DRSN-tech/visual-matcher/internal/domain"

type CatalogEntryConverter interface {
	ToArrRedisModel(entities []domain.CatalogEntry) []CatalogEntryRedisModel
	ToArrEntity(models []CatalogEntryRedisModel) []domain.CatalogEntry
}

type CatalogEntryConverterImpl struct{}

func NewCatalogEntryConverterImpl() *CatalogEntryConverterImpl {
	return &CatalogEntryConverterImpl{}
}

func (c *CatalogEntryConverterImpl) ToArrRedisModel(entities []domain.CatalogEntry) []CatalogEntryRedisModel {
	result := make([]CatalogEntryRedisModel, 0, len(entities))
	for _, entity := range entities {
		result = append(result, CatalogEntryRedisModel{
			ID:           entity.ID,
			Name:         entity.Name,
			Category:     entity.Category,
			ImageRef:     entity.ImageReference,
			Embedding:    []float32(entity.Embedding),
			ModelVersion: entity.ModelVersion,
		})
	}

	return result
}

func (c *CatalogEntryConverterImpl) ToArrEntity(models []CatalogEntryRedisModel) []domain.CatalogEntry {
	result := make([]domain.CatalogEntry, 0, len(models))
	for _, model := range models {
		result = append(result, domain.CatalogEntry{
			ID:             model.ID,
			Name:           model.Name,
			Category:       model.Category,
			ImageReference: model.ImageRef,
			Embedding:      domain.Embedding(model.Embedding),
			ModelVersion:   model.ModelVersion,
		})
	}

	return result
}
