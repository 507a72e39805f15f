package embeddings

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
//
// Empty vectors, a length mismatch and zero-magnitude vectors are errors
// rather than a zero score, so callers can tell "unrelated" from "unknown".
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d != %d", ErrEmbeddingFailed, len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0, fmt.Errorf("%w: zero-magnitude vector", ErrEmbeddingFailed)
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if math.IsNaN(sim) {
		return 0, fmt.Errorf("%w: similarity is NaN", ErrEmbeddingFailed)
	}
	return math.Max(-1, math.Min(1, sim)), nil
}
