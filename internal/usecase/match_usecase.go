package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
)

// MatchUseCase реализует конвейер: получение изображения -> нормализация ->
// эмбеддинг -> снимок каталога -> ранжирование. Общего изменяемого состояния нет.
type MatchUseCase struct {
	acquirer   ImageAcquirer
	normalizer ImageNormalizer
	embedder   EmbeddingGenerator
	catalog    CatalogSnapshotProvider
	cacheRepo  CacheRepository // может быть nil
	topK       int
	logger     logger.Logger
}

func NewMatchUC(
	acquirer ImageAcquirer,
	normalizer ImageNormalizer,
	embedder EmbeddingGenerator,
	catalog CatalogSnapshotProvider,
	cacheRepo CacheRepository,
	topK int,
	logger logger.Logger,
) *MatchUseCase {
	return &MatchUseCase{
		acquirer:   acquirer,
		normalizer: normalizer,
		embedder:   embedder,
		catalog:    catalog,
		cacheRepo:  cacheRepo,
		topK:       topK,
		logger:     logger,
	}
}

// FindSimilar возвращает topK наиболее похожих товаров каталога.
// Любой отказ завершает запрос; вид отказа сохраняется (см. e.KindOf).
func (m *MatchUseCase) FindSimilar(ctx context.Context, req *MatchReq) (*MatchRes, error) {
	const op = "MatchUseCase.FindSimilar"

	raw, err := m.acquirer.Acquire(ctx, req.Input)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	canonical, err := m.normalizer.Normalize(raw)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := m.embedder.Embed(ctx, canonical.Bytes)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snapshot, err := m.loadSnapshot(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res, err := Rank(vector.Vector, snapshot, m.topK)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if res.Skipped.Total() > 0 {
		m.logger.Warnf(
			"%s: skipped %d of %d catalog entries (dimension_mismatch=%d, degenerate=%d)",
			op, res.Skipped.Total(), res.CatalogSize, res.Skipped.DimensionMismatch, res.Skipped.Degenerate,
		)
	}

	m.logger.Debugf("%s: returned %d matches, model_version=%s", op, len(res.Matches), vector.ModelVersion)
	return res, nil
}

// loadSnapshot читает снимок каталога из кэша, при промахе — из хранилища
// с фоновым обновлением кэша. Ошибки кэша не прерывают запрос.
func (m *MatchUseCase) loadSnapshot(ctx context.Context) ([]domain.CatalogEntry, error) {
	const op = "MatchUseCase.loadSnapshot"

	if m.cacheRepo != nil {
		cached, ok, err := m.cacheRepo.GetSnapshot(ctx)
		if err != nil {
			m.logger.Warnf("Catalog cache read failed: %v", e.Wrap(op, err))
		} else if ok {
			return cached, nil
		}
	}

	snapshot, err := m.catalog.Snapshot(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if m.cacheRepo != nil && len(snapshot) > 0 {
		// Фоновое добавление снимка в кэш
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := m.cacheRepo.SetSnapshot(bgCtx, snapshot); err != nil {
				m.logger.Warnf("Failed to cache catalog snapshot in background: %v", e.Wrap(op, err))
			}
		}()
	}

	return snapshot, nil
}
