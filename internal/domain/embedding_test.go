package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func randomEmbedding(rng *rand.Rand, dim int) Embedding {
	v := make(Embedding, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64() * 10)
	}
	return v
}

func TestNormalize_UnitNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		v := randomEmbedding(rng, 1+rng.Intn(1280))

		n, err := v.Normalize()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, n.Norm(), tolerance)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		v := randomEmbedding(rng, 64)

		once, err := v.Normalize()
		require.NoError(t, err)
		twice, err := once.Normalize()
		require.NoError(t, err)

		require.Len(t, twice, len(once))
		for j := range once {
			assert.InDelta(t, once[j], twice[j], tolerance)
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	v := Embedding{3, 4}

	n, err := v.Normalize()
	require.NoError(t, err)

	assert.Equal(t, Embedding{3, 4}, v)
	assert.InDelta(t, 0.6, n[0], tolerance)
	assert.InDelta(t, 0.8, n[1], tolerance)
}

func TestNormalize_Degenerate(t *testing.T) {
	cases := map[string]Embedding{
		"zero":  {0, 0, 0},
		"empty": {},
		"nan":   {float32(math.NaN()), 1},
		"inf":   {float32(math.Inf(1)), 1},
	}

	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Normalize()
			assert.ErrorIs(t, err, e.ErrDegenerateEmbedding)
		})
	}
}

func TestDot_SelfSimilarity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	v, err := randomEmbedding(rng, 1280).Normalize()
	require.NoError(t, err)

	assert.InDelta(t, 1.0, v.Dot(v), tolerance)
}
