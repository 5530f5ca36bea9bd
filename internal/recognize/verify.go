package recognize

import "fmt"

// Verify decides whether two embeddings belong to the same person by
// comparing their cosine similarity against a threshold. Inputs are
// compared as-is, without renormalization.
//
// The threshold must lie in [-1, 1], the range of cosine similarity.
func Verify(a, b Embedding, threshold float64) (VerifyResult, error) {
	if threshold < -1 || threshold > 1 {
		return VerifyResult{}, fmt.Errorf("%w: threshold %v outside [-1, 1]", ErrInvalidParameter, threshold)
	}

	similarity, err := CosineSimilarity(a, b)
	if err != nil {
		return VerifyResult{}, err
	}

	return VerifyResult{
		Similarity: similarity,
		Threshold:  threshold,
		Verified:   similarity >= threshold,
	}, nil
}
