package usecase

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitAt возвращает двумерный вектор, косинус которого с (1, 0) равен sim.
func unitAt(sim float64) domain.Embedding {
	return domain.Embedding{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func entry(name string, v domain.Embedding) domain.CatalogEntry {
	return domain.CatalogEntry{Name: name, Category: "shoes", ImageReference: name + ".jpg", Embedding: v}
}

func names(matches []domain.MatchResult) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Name
	}
	return out
}

func randomCatalog(rng *rand.Rand, n int, dim int) []domain.CatalogEntry {
	catalog := make([]domain.CatalogEntry, n)
	for i := range catalog {
		v := make(domain.Embedding, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		catalog[i] = entry(fmt.Sprintf("item-%d", i), v)
	}
	return catalog
}

func TestRank_TieKeepsSnapshotOrder(t *testing.T) {
	catalog := []domain.CatalogEntry{
		entry("A", unitAt(0.9)),
		entry("B", unitAt(0.95)),
		entry("C", unitAt(0.95)),
	}

	res, err := Rank(domain.Embedding{1, 0}, catalog, DefaultTopK)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "A"}, names(res.Matches))
	assert.Equal(t, 95.0, res.Matches[0].SimilarityScore)
	assert.Equal(t, 95.0, res.Matches[1].SimilarityScore)
	assert.Equal(t, 90.0, res.Matches[2].SimilarityScore)
}

func TestRank_LengthAndOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	query := domain.Embedding{0.3, -1.2, 0.7, 2.1}

	for size := 1; size <= 25; size++ {
		catalog := randomCatalog(rng, size, len(query))

		res, err := Rank(query, catalog, DefaultTopK)
		require.NoError(t, err)

		assert.Len(t, res.Matches, min(DefaultTopK, size))
		for i := 1; i < len(res.Matches); i++ {
			assert.GreaterOrEqual(t, res.Matches[i-1].SimilarityScore, res.Matches[i].SimilarityScore)
		}
		assert.Equal(t, size, res.CatalogSize)
		assert.Zero(t, res.Skipped.Total())
	}
}

func TestRank_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	query := domain.Embedding{1, 2, 3, 4, 5, 6, 7, 8}
	catalog := randomCatalog(rng, 40, len(query))

	base, err := Rank(query, catalog, DefaultTopK)
	require.NoError(t, err)

	for round := 0; round < 10; round++ {
		shuffled := append([]domain.CatalogEntry(nil), catalog...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		res, err := Rank(query, shuffled, DefaultTopK)
		require.NoError(t, err)
		assert.Equal(t, names(base.Matches), names(res.Matches))
	}
}

func TestRank_TiedGroupsFollowInputOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sims := []float64{0.2, 0.5, 0.8}

	var catalog []domain.CatalogEntry
	for _, s := range sims {
		for k := 0; k < 3; k++ {
			catalog = append(catalog, entry(fmt.Sprintf("%.1f-%d", s, k), unitAt(s)))
		}
	}

	for round := 0; round < 10; round++ {
		rng.Shuffle(len(catalog), func(i, j int) { catalog[i], catalog[j] = catalog[j], catalog[i] })

		res, err := Rank(domain.Embedding{1, 0}, catalog, DefaultTopK)
		require.NoError(t, err)
		require.Len(t, res.Matches, len(catalog))

		// порядок внутри каждой группы равных значений совпадает с порядком во входном снимке
		for _, s := range sims {
			score := Score(s)
			var want, got []string
			for _, c := range catalog {
				if Score(c.Embedding.Dot(domain.Embedding{1, 0})/c.Embedding.Norm()) == score {
					want = append(want, c.Name)
				}
			}
			for _, m := range res.Matches {
				if m.SimilarityScore == score {
					got = append(got, m.Name)
				}
			}
			assert.Equal(t, want, got)
		}
	}
}

func TestRank_SelfSimilarity(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	catalog := randomCatalog(rng, 15, 1280)
	query := append(domain.Embedding(nil), catalog[7].Embedding...)

	res, err := Rank(query, catalog, DefaultTopK)
	require.NoError(t, err)

	assert.Equal(t, "item-7", res.Matches[0].Name)
	assert.Equal(t, 100.0, res.Matches[0].SimilarityScore)
}

func TestRank_UnnormalizedCatalogIsNormalized(t *testing.T) {
	catalog := []domain.CatalogEntry{
		entry("big", domain.Embedding{300, 400}),
		entry("small", domain.Embedding{0.001, 0}),
	}

	res, err := Rank(domain.Embedding{3, 4}, catalog, DefaultTopK)
	require.NoError(t, err)

	assert.Equal(t, []string{"big", "small"}, names(res.Matches))
	assert.Equal(t, 100.0, res.Matches[0].SimilarityScore)
	assert.Equal(t, 60.0, res.Matches[1].SimilarityScore)
}

func TestRank_EmptyCatalog(t *testing.T) {
	res, err := Rank(domain.Embedding{1, 0}, nil, DefaultTopK)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, e.ErrEmptyCatalog)
	assert.Equal(t, e.KindEmptyCatalog, e.KindOf(err))
}

func TestRank_DegenerateQuery(t *testing.T) {
	_, err := Rank(domain.Embedding{0, 0}, []domain.CatalogEntry{entry("A", unitAt(0.5))}, DefaultTopK)

	assert.Equal(t, e.KindDegenerateEmbedding, e.KindOf(err))
}

func TestRank_SkipsBadEntries(t *testing.T) {
	catalog := []domain.CatalogEntry{
		entry("stale", domain.Embedding{1, 0, 0}),
		entry("ok", unitAt(0.7)),
		entry("zero", domain.Embedding{0, 0}),
	}

	res, err := Rank(domain.Embedding{1, 0}, catalog, DefaultTopK)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, names(res.Matches))
	assert.Equal(t, 1, res.Skipped.DimensionMismatch)
	assert.Equal(t, 1, res.Skipped.Degenerate)
	assert.Equal(t, 2, res.Skipped.Total())
}

func TestRank_NothingComparable(t *testing.T) {
	_, err := Rank(domain.Embedding{1, 0}, []domain.CatalogEntry{entry("stale", domain.Embedding{1, 0, 0})}, DefaultTopK)
	assert.Equal(t, e.KindDimensionMismatch, e.KindOf(err))

	_, err = Rank(domain.Embedding{1, 0}, []domain.CatalogEntry{entry("zero", domain.Embedding{0, 0})}, DefaultTopK)
	assert.Equal(t, e.KindDegenerateEmbedding, e.KindOf(err))
}

func TestRank_CustomTopK(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	res, err := Rank(domain.Embedding{1, 1}, randomCatalog(rng, 8, 2), 3)
	require.NoError(t, err)
	assert.Len(t, res.Matches, 3)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 50.0, Score(0.5))
	assert.Equal(t, 91.23, Score(0.912345))
	assert.Equal(t, -50.0, Score(-0.5))
	assert.Equal(t, 100.0, Score(0.99999999))
}
