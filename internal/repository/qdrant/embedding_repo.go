package qdrant

import (
	"context"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/clients"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadName         = "name"
	payloadCategory     = "category"
	payloadImageRef     = "image_ref"
	payloadModelVersion = "model_version"
)

// EmbeddingRepo хранит копию каталога в Qdrant: id точки = id записи в PostgreSQL,
// метаданные товара — в payload.
type EmbeddingRepo struct {
	client *clients.QdrantClient
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *clients.QdrantClient, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert сохраняет или обновляет точки каталога.
func (q *EmbeddingRepo) Upsert(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for i := range entries {
		points = append(points, toPoint(&entries[i]))
	}

	if _, err := q.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         points,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Snapshot постранично читает коллекцию. Числовые id возвращаются по возрастанию,
// то есть в порядке вставки. Следующая страница начинается с лишней (limit+1) точки.
func (q *EmbeddingRepo) Snapshot(ctx context.Context) ([]domain.CatalogEntry, error) {
	pageSize := q.cfg.ScrollPageSize
	if pageSize == 0 {
		pageSize = 256
	}

	var (
		result []domain.CatalogEntry
		offset *qdrant.PointId
	)
	for {
		points, err := q.client.Client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Offset:         offset,
			Limit:          qdrant.PtrOf(pageSize + 1),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		page, next := splitPage(points, int(pageSize))
		for _, p := range page {
			result = append(result, fromPoint(p))
		}

		if next == nil {
			return result, nil
		}
		offset = next
	}
}

// DeleteAll пересоздаёт коллекцию.
func (q *EmbeddingRepo) DeleteAll(ctx context.Context) error {
	if err := clients.RecreateCollection(ctx, q.client); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// splitPage отделяет страницу от первой точки следующей страницы.
func splitPage(points []*qdrant.RetrievedPoint, pageSize int) ([]*qdrant.RetrievedPoint, *qdrant.PointId) {
	if len(points) <= pageSize {
		return points, nil
	}

	return points[:pageSize], points[pageSize].GetId()
}

func toPoint(entry *domain.CatalogEntry) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(entry.ID)),
		Vectors: qdrant.NewVectors(entry.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadName:         entry.Name,
			payloadCategory:     entry.Category,
			payloadImageRef:     entry.ImageReference,
			payloadModelVersion: entry.ModelVersion,
		}),
	}
}

func fromPoint(p *qdrant.RetrievedPoint) domain.CatalogEntry {
	payload := p.GetPayload()

	return domain.CatalogEntry{
		ID:             int64(p.GetId().GetNum()),
		Name:           payload[payloadName].GetStringValue(),
		Category:       payload[payloadCategory].GetStringValue(),
		ImageReference: payload[payloadImageRef].GetStringValue(),
		Embedding:      domain.Embedding(p.GetVectors().GetVector().GetData()),
		ModelVersion:   payload[payloadModelVersion].GetStringValue(),
	}
}
