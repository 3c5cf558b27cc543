package converter

import (
	"testing"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCatalogEntryConverter_PreservesOrderAndFields(t *testing.T) {
	conv := NewCatalogEntryConverterImpl()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	models := []CatalogEntryModel{
		{ID: 2, Name: "Red Boot", CategoryName: "shoes", ImageRef: "shoes/red.jpg", Embedding: []float32{1, 0}, ModelVersion: "v1", CreatedAt: created},
		{ID: 1, Name: "Blue Cap", CategoryName: "hats", ImageRef: "https://cdn/cap.png", Embedding: []float32{0, 1}, ModelVersion: "v1"},
	}

	entries := conv.ToArrEntity(models)

	assert.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, "shoes", entries[0].Category)
	assert.Equal(t, domain.Embedding{1, 0}, entries[0].Embedding)
	assert.Equal(t, created, entries[0].CreatedAt)
	assert.Equal(t, "Blue Cap", entries[1].Name)

	back := conv.ToModel(&entries[1])
	assert.Equal(t, models[1], *back)
}

func TestConverters_Nil(t *testing.T) {
	assert.Nil(t, NewCatalogEntryConverterImpl().ToEntity(nil))
	assert.Nil(t, NewCategoryConverterImpl().ToModel(nil))
	assert.Empty(t, NewCatalogEntryConverterImpl().ToArrEntity(nil))
}

func TestCategoryConverter_RoundTrip(t *testing.T) {
	conv := NewCategoryConverterImpl()
	cat := &domain.Category{ID: 7, Name: "home decor", IsArchived: true}

	assert.Equal(t, cat, conv.ToEntity(conv.ToModel(cat)))
}
