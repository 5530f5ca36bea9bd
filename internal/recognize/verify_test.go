package recognize

import (
	"errors"
	"math"
	"testing"
)

func TestVerify_IdenticalEmbeddings(t *testing.T) {
	e := Embedding{0.5, 0.3, 0.2, 0.7}

	result, err := Verify(e, e, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified {
		t.Error("identical embeddings must verify at any threshold <= 1.0")
	}
	if math.Abs(result.Similarity-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0, got %f", result.Similarity)
	}
}

func TestVerify_ParallelVectors(t *testing.T) {
	result, err := Verify(Embedding{1, 1}, Embedding{1, 1}, 0.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Similarity-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0, got %f", result.Similarity)
	}
	if !result.Verified {
		t.Error("expected verified=true at threshold 0.99")
	}
}

func TestVerify_OrthogonalVectors(t *testing.T) {
	result, err := Verify(Embedding{1, 0}, Embedding{0, 1}, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Similarity != 0 {
		t.Errorf("expected similarity 0, got %f", result.Similarity)
	}
	if result.Verified {
		t.Error("expected verified=false at threshold 0.5")
	}
}

func TestVerify_Symmetric(t *testing.T) {
	a := Embedding{0.3, -0.2, 0.9, 0.1}
	b := Embedding{0.1, 0.4, 0.7, -0.3}

	ab, err := Verify(a, b, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Verify(b, a, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ab.Similarity != ba.Similarity {
		t.Errorf("similarity not symmetric: %f vs %f", ab.Similarity, ba.Similarity)
	}
	if ab.Verified != ba.Verified {
		t.Errorf("decision not symmetric: %v vs %v", ab.Verified, ba.Verified)
	}
}

func TestVerify_ThresholdBoundary(t *testing.T) {
	// Similarity exactly at the threshold verifies (>= comparison).
	result, err := Verify(Embedding{1, 0}, Embedding{0, 1}, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified {
		t.Error("similarity equal to threshold must verify")
	}
}

func TestVerify_ZeroVector(t *testing.T) {
	tests := []struct {
		name string
		a, b Embedding
	}{
		{"first zero", Embedding{0, 0, 0}, Embedding{1, 0, 0}},
		{"second zero", Embedding{1, 0, 0}, Embedding{0, 0, 0}},
		{"both zero", Embedding{0, 0}, Embedding{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.a, tt.b, 0.5)
			if !errors.Is(err, ErrDegenerateVector) {
				t.Errorf("expected ErrDegenerateVector, got %v", err)
			}
		})
	}
}

func TestVerify_DimensionMismatch(t *testing.T) {
	_, err := Verify(Embedding{1, 0, 0}, Embedding{1, 0}, 0.5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestVerify_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{-1.5, 1.5, 2.0} {
		_, err := Verify(Embedding{1, 0}, Embedding{1, 0}, threshold)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("threshold %v: expected ErrInvalidParameter, got %v", threshold, err)
		}
	}
}

func TestVerify_OppositeVectors(t *testing.T) {
	result, err := Verify(Embedding{1, 0}, Embedding{-1, 0}, -1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Similarity-(-1.0)) > 1e-9 {
		t.Errorf("expected similarity -1.0, got %f", result.Similarity)
	}
	if !result.Verified {
		t.Error("expected verified=true at threshold -1.0")
	}
}
