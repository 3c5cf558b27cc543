package pgdb

import (
	"context"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// CatalogRepo хранит товары каталога вместе с эмбеддингами (REAL[]).
type CatalogRepo struct {
	pool *pgxpool.Pool
	conv converter.CatalogEntryConverter
}

func NewCatalogRepo(pool *pgxpool.Pool, conv converter.CatalogEntryConverter) *CatalogRepo {
	return &CatalogRepo{
		pool: pool,
		conv: conv,
	}
}

// Snapshot читает весь каталог в порядке вставки.
func (c *CatalogRepo) Snapshot(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `
		SELECT ce.id, ce.name, COALESCE(cat.name, ''), ce.image_ref, ce.embedding,
			ce.model_version, ce.created_at, ce.updated_at
		FROM catalog_entries ce
		LEFT JOIN categories cat ON ce.category_id = cat.id
		ORDER BY ce.id
	`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (converter.CatalogEntryModel, error) {
		var m converter.CatalogEntryModel
		err := row.Scan(
			&m.ID, &m.Name, &m.CategoryName, &m.ImageRef, &m.Embedding,
			&m.ModelVersion, &m.CreatedAt, &m.UpdatedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToArrEntity(models), nil
}

// Upsert создаёт товар или обновляет изображение и эмбеддинг существующего (name, category_id).
// id существующей записи сохраняется, поэтому её место в снимке не меняется.
func (c *CatalogRepo) Upsert(ctx context.Context, entry *domain.CatalogEntry, categoryID int64) (*domain.CatalogEntry, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO catalog_entries (name, category_id, image_ref, embedding, model_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, category_id)
		DO UPDATE SET
			image_ref = EXCLUDED.image_ref,
			embedding = EXCLUDED.embedding,
			model_version = EXCLUDED.model_version,
			updated_at = NOW()
		RETURNING id, created_at, updated_at;
	`

	model := c.conv.ToModel(entry)
	if err := tx.QueryRow(ctx, query, model.Name, categoryID, model.ImageRef, model.Embedding, model.ModelVersion).
		Scan(&model.ID, &model.CreatedAt, &model.UpdatedAt); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(model), nil
}

// UpdateEmbedding заменяет эмбеддинг товара (перевекторизация каталога).
func (c *CatalogRepo) UpdateEmbedding(ctx context.Context, id int64, embedding domain.Embedding, modelVersion string) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE catalog_entries
		SET embedding = $2, model_version = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, []float32(embedding), modelVersion)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), pgx.ErrNoRows)
	}

	return nil
}

// DeleteAll очищает каталог; категории остаются.
func (c *CatalogRepo) DeleteAll(ctx context.Context) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_entries`); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
