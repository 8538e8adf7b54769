package domain

import "math"

// NormalizeL2 returns v scaled to unit length. A zero vector is returned unchanged.
// The input slice is not modified.
func NormalizeL2(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}

	magnitude := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}

// Dot returns the inner product of a and b accumulated in float64.
// Callers must ensure len(a) == len(b).
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
