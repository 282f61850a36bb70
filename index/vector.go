package index

import "math"

// normEpsilon guards the division when normalizing a degenerate
// (all-zero) embedding.
const normEpsilon = 1e-9

// Normalize scales a vector to unit length using v / (||v|| + epsilon).
// Returns a new vector; a zero vector stays zero instead of dividing by zero.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares) + normEpsilon

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
