package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMatchResult_Defaults(t *testing.T) {
	res := NewMatchResult(&CatalogEntry{}, 12.5)

	assert.Equal(t, "Unknown", res.Name)
	assert.Equal(t, "N/A", res.Category)
	assert.Equal(t, "", res.ImageReference)
	assert.Equal(t, 12.5, res.SimilarityScore)
}

func TestNewCategory_Underscores(t *testing.T) {
	assert.Equal(t, "home decor", NewCategory("home_decor").Name)
}
