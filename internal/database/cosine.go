package database

import "github.com/votersentry/voter-sentry/internal/recognize"

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); invalid or
// zero-magnitude inputs map to the maximum distance so they never rank
// ahead of real matches.
func CosineDistance(a, b []float32) float64 {
	similarity, err := recognize.CosineSimilarity(recognize.Embedding(a), recognize.Embedding(b))
	if err != nil {
		return 2.0
	}
	return 1 - similarity
}
