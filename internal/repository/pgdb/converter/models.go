package converter

import "time"

// CategoryModel представляет запись таблицы categories в PostgreSQL.
type CategoryModel struct {
	ID         int64      `db:"id"`
	Name       string     `db:"name"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
	IsArchived bool       `db:"is_archived"`
}

// CatalogEntryModel — строка catalog_entries вместе с именем категории.
type CatalogEntryModel struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	CategoryName string     `db:"category_name"`
	ImageRef     string     `db:"image_ref"`
	Embedding    []float32  `db:"embedding"`
	ModelVersion string     `db:"model_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}
