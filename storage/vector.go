package storage

import "math"

// NormalizeVector normalizes a vector to unit length so that dot product
// equals cosine similarity. Returns a new vector. A zero vector normalizes
// to a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// DotProduct computes the dot product of two vectors. Mismatched lengths
// score zero.
func DotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SimilarityMatch is a vector-store item matched by a similarity lookup.
type SimilarityMatch struct {
	Item  *VectorItem
	Score float32
}
