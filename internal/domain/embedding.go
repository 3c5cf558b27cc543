package domain

import (
	"math"

	"github.com/DRSN-tech/visual-matcher/pkg/e"
)

// Embedding — вектор признаков изображения фиксированной размерности.
type Embedding []float32

// Norm возвращает L2-норму вектора.
func (v Embedding) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}

// Normalize возвращает копию вектора единичной L2-нормы.
// Для нулевого вектора (или вектора с NaN/Inf) возвращает e.ErrDegenerateEmbedding.
func (v Embedding) Normalize() (Embedding, error) {
	norm := v.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, e.ErrDegenerateEmbedding
	}

	out := make(Embedding, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out, nil
}

// Dot — скалярное произведение. Для единичных векторов это косинусная близость.
// Размерности должны совпадать, проверка на стороне вызывающего.
func (v Embedding) Dot(other Embedding) float64 {
	var sum float64
	for i := range v {
		sum += float64(v[i]) * float64(other[i])
	}

	return sum
}

// Dim возвращает размерность вектора.
func (v Embedding) Dim() int {
	return len(v)
}
