// Package vector provides dense-vector similarity scoring.
package vector

import "math"

// CosineSimilarity returns dot(a,b) / (||a|| * ||b||). Vectors of different
// lengths score 0 rather than erroring, and a near-zero norm also scores 0 to
// avoid NaN from division by zero. Results are nominally in [-1,1]; normalized
// embeddings cluster in [0,1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA < 1e-12 || normB < 1e-12 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
