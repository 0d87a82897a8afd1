package similarity

import "math"

// CosineSimilarity calculates cosine similarity between two float32 vectors.
// Returns a value in [-1, 1] where 1 = identical, 0 = orthogonal, -1 = opposite.
//
// Uses float64 accumulation for precision even with float32 inputs. Mismatched
// or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProd, normA, normB float64
	for i := range a {
		dotProd += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProd / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns a unit-length copy of the vector. Zero vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
