package database

import "math"

// similarityEpsilon keeps the denominator away from zero.
const similarityEpsilon = 1e-10

// CosineSimilarity computes dot(a,b) / (|a|*|b| + eps).
// The second return value is false when the vectors cannot be compared
// (length mismatch, empty, or a zero vector); the similarity is then -1.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return -1, false
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return -1, false
	}

	similarity := dotProduct / (math.Sqrt(normA)*math.Sqrt(normB) + similarityEpsilon)
	if math.IsNaN(similarity) {
		return -1, false
	}
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity, true
}

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func CosineDistance(a, b []float32) float64 {
	similarity, ok := CosineSimilarity(a, b)
	if !ok {
		return 2.0 // Maximum distance for invalid input
	}
	return 1 - similarity
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
