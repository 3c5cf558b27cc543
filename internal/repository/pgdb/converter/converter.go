package converter

import "github.com/DRSN-tech/visual-matcher/internal/domain"

// CategoryConverter преобразует сущности Category между domain и моделью PostgreSQL.
type CategoryConverter interface {
	ToModel(entity *domain.Category) *CategoryModel
	ToEntity(model *CategoryModel) *domain.Category
}

// CatalogEntryConverter преобразует записи каталога между domain и моделью PostgreSQL.
type CatalogEntryConverter interface {
	ToModel(entity *domain.CatalogEntry) *CatalogEntryModel
	ToEntity(model *CatalogEntryModel) *domain.CatalogEntry
	ToArrEntity(models []CatalogEntryModel) []domain.CatalogEntry
}

type CategoryConverterImpl struct{}

func NewCategoryConverterImpl() *CategoryConverterImpl {
	return &CategoryConverterImpl{}
}

func (c *CategoryConverterImpl) ToModel(entity *domain.Category) *CategoryModel {
	if entity == nil {
		return nil
	}

	return &CategoryModel{
		ID:         entity.ID,
		Name:       entity.Name,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
		IsArchived: entity.IsArchived,
	}
}

func (c *CategoryConverterImpl) ToEntity(model *CategoryModel) *domain.Category {
	if model == nil {
		return nil
	}

	return &domain.Category{
		ID:         model.ID,
		Name:       model.Name,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		IsArchived: model.IsArchived,
	}
}

type CatalogEntryConverterImpl struct{}

func NewCatalogEntryConverterImpl() *CatalogEntryConverterImpl {
	return &CatalogEntryConverterImpl{}
}

func (c *CatalogEntryConverterImpl) ToModel(entity *domain.CatalogEntry) *CatalogEntryModel {
	if entity == nil {
		return nil
	}

	return &CatalogEntryModel{
		ID:           entity.ID,
		Name:         entity.Name,
		CategoryName: entity.Category,
		ImageRef:     entity.ImageReference,
		Embedding:    []float32(entity.Embedding),
		ModelVersion: entity.ModelVersion,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}

func (c *CatalogEntryConverterImpl) ToEntity(model *CatalogEntryModel) *domain.CatalogEntry {
	if model == nil {
		return nil
	}

	return &domain.CatalogEntry{
		ID:             model.ID,
		Name:           model.Name,
		Category:       model.CategoryName,
		ImageReference: model.ImageRef,
		Embedding:      domain.Embedding(model.Embedding),
		ModelVersion:   model.ModelVersion,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func (c *CatalogEntryConverterImpl) ToArrEntity(models []CatalogEntryModel) []domain.CatalogEntry {
	result := make([]domain.CatalogEntry, 0, len(models))
	for i := range models {
		result = append(result, *c.ToEntity(&models[i]))
	}

	return result
}
