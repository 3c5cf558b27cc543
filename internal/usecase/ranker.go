package usecase

import (
	"sort"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/shopspring/decimal"
)

// DefaultTopK — размер выдачи по умолчанию.
const DefaultTopK = 10

type scoredEntry struct {
	idx        int
	similarity float64
}

// Rank сравнивает запрос со всеми записями снимка по косинусной близости,
// сортирует по убыванию (при равенстве сохраняется порядок снимка) и обрезает до topK.
// Оба вектора нормализуются на каждом вызове. Записи с другой размерностью или нулевой
// нормой пропускаются и учитываются в SkipStats.
func Rank(query domain.Embedding, catalog []domain.CatalogEntry, topK int) (*MatchRes, error) {
	const op = "Rank"

	if len(catalog) == 0 {
		return nil, e.NewMatchError(e.KindEmptyCatalog, op, nil, nil)
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	q, err := query.Normalize()
	if err != nil {
		return nil, e.NewMatchError(e.KindDegenerateEmbedding, op, nil, map[string]any{"side": "query", "dim": query.Dim()})
	}

	var skipped SkipStats
	scored := make([]scoredEntry, 0, len(catalog))
	for i := range catalog {
		if catalog[i].Embedding.Dim() != q.Dim() {
			skipped.DimensionMismatch++
			continue
		}

		v, err := catalog[i].Embedding.Normalize()
		if err != nil {
			skipped.Degenerate++
			continue
		}

		scored = append(scored, scoredEntry{idx: i, similarity: q.Dot(v)})
	}

	if len(scored) == 0 {
		details := map[string]any{
			"query_dim":          q.Dim(),
			"catalog_size":       len(catalog),
			"dimension_mismatch": skipped.DimensionMismatch,
			"degenerate":         skipped.Degenerate,
		}
		if skipped.DimensionMismatch > 0 {
			return nil, e.NewMatchError(e.KindDimensionMismatch, op, nil, details)
		}
		return nil, e.NewMatchError(e.KindDegenerateEmbedding, op, nil, details)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	matches := make([]domain.MatchResult, 0, len(scored))
	for _, s := range scored {
		matches = append(matches, domain.NewMatchResult(&catalog[s.idx], Score(s.similarity)))
	}

	return NewMatchRes(matches, skipped, len(catalog)), nil
}

// Score переводит косинусную близость в проценты с округлением до 2 знаков.
// Только для отображения, в сравнении не участвует.
func Score(similarity float64) float64 {
	return decimal.NewFromFloat(similarity * 100).Round(2).InexactFloat64()
}
