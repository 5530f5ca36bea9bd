// Package recognize implements face embedding matching for voter identity
// checks: k-nearest-neighbor recognition against an enrolled gallery and
// pairwise cosine-similarity verification.
package recognize

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by matching and verification operations.
// Callers should test with errors.Is; all errors are terminal, no
// operation falls back to a default result.
var (
	// ErrEmptyGallery is returned when matching against a gallery with no embeddings.
	ErrEmptyGallery = errors.New("gallery contains no embeddings")

	// ErrInvalidParameter is returned for an out-of-range k or threshold.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDimensionMismatch is returned when two embeddings have different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDegenerateVector is returned when an embedding has zero magnitude,
	// making cosine similarity undefined.
	ErrDegenerateVector = errors.New("embedding has zero magnitude")
)

// Embedding is a fixed-length face embedding vector. FaceNet-style
// embedders produce 128 dimensions; the matcher only requires that all
// embeddings in one operation share the same length.
type Embedding []float32

// Label identifies the person an enrolled embedding belongs to
// (a voter ID in this system). Labels are opaque to the matcher.
type Label string

// entry is one enrolled embedding with its label.
type entry struct {
	label     Label
	embedding Embedding
}

// Gallery holds enrolled embeddings grouped by label. A label may carry
// multiple embeddings (several enrollment photos of the same voter).
// A Gallery is append-only via Add and must not be modified while a
// FindNearest call is in flight.
type Gallery struct {
	dim     int
	entries []entry
}

// NewGallery creates an empty gallery. Dimension is fixed by the first
// embedding added.
func NewGallery() *Gallery {
	return &Gallery{}
}

// Add enrolls an embedding under the given label. The first embedding
// fixes the gallery dimension; later embeddings must match it.
func (g *Gallery) Add(label Label, embedding Embedding) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for label %q", ErrInvalidParameter, label)
	}
	if g.dim == 0 {
		g.dim = len(embedding)
	} else if len(embedding) != g.dim {
		return fmt.Errorf("%w: gallery dim %d, embedding dim %d", ErrDimensionMismatch, g.dim, len(embedding))
	}
	g.entries = append(g.entries, entry{label: label, embedding: embedding})
	return nil
}

// Len returns the total number of enrolled embeddings.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// Dim returns the embedding dimension, or 0 for an empty gallery.
func (g *Gallery) Dim() int {
	return g.dim
}

// Labels returns the distinct labels in enrollment order.
func (g *Gallery) Labels() []Label {
	seen := make(map[Label]bool, len(g.entries))
	var labels []Label
	for _, e := range g.entries {
		if !seen[e.label] {
			seen[e.label] = true
			labels = append(labels, e.label)
		}
	}
	return labels
}

// MatchResult is the outcome of a FindNearest call.
type MatchResult struct {
	// Label is the predicted identity.
	Label Label
	// Distance is the smallest Euclidean distance between the query and
	// the winning label's embeddings among the k nearest neighbors.
	Distance float64
	// Votes is how many of the k nearest neighbors carried the winning label.
	Votes int
	// K is the neighbor count the decision was made over.
	K int
}

// VerifyResult is the outcome of a Verify call.
type VerifyResult struct {
	// Similarity is the cosine similarity of the two embeddings, in [-1, 1].
	Similarity float64
	// Threshold is the decision threshold that was applied.
	Threshold float64
	// Verified reports whether Similarity >= Threshold.
	Verified bool
}
