package domain

import (
	"strings"
	"time"
)

// Category описывает категорию товара
type Category struct {
	ID         int64
	Name       string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	IsArchived bool
}

// NewCategory создаёт категорию; подчёркивания в имени папки заменяются пробелами.
func NewCategory(name string) *Category {
	return &Category{
		Name: strings.TrimSpace(strings.ReplaceAll(name, "_", " ")),
	}
}
