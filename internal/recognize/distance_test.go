package recognize

import (
	"errors"
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{1, 2, 3}, Embedding{1, 2, 3}, 0},
		{"unit apart", Embedding{0, 0}, Embedding{1, 0}, 1},
		{"pythagorean", Embedding{0, 0}, Embedding{3, 4}, 5},
		{"negative components", Embedding{-1, 0}, Embedding{1, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := EuclideanDistance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(dist-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, dist)
			}
		})
	}
}

func TestEuclideanDistance_DimensionMismatch(t *testing.T) {
	_, err := EuclideanDistance(Embedding{1, 2}, Embedding{1, 2, 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
		delta    float64
	}{
		{"identical", Embedding{1, 2, 3}, Embedding{1, 2, 3}, 1.0, 1e-9},
		{"scaled copy", Embedding{1, 2, 3}, Embedding{2, 4, 6}, 1.0, 1e-6},
		{"orthogonal", Embedding{1, 0}, Embedding{0, 1}, 0.0, 1e-9},
		{"opposite", Embedding{1, 0}, Embedding{-1, 0}, -1.0, 1e-9},
		{"45 degrees", Embedding{1, 0}, Embedding{1, 1}, math.Sqrt2 / 2, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(sim-tt.expected) > tt.delta {
				t.Errorf("expected %f, got %f", tt.expected, sim)
			}
		})
	}
}

func TestCosineSimilarity_Errors(t *testing.T) {
	if _, err := CosineSimilarity(Embedding{1, 0}, Embedding{1, 0, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := CosineSimilarity(Embedding{0, 0}, Embedding{1, 0}); !errors.Is(err, ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector, got %v", err)
	}
	if _, err := CosineSimilarity(Embedding{}, Embedding{}); !errors.Is(err, ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector for empty embeddings, got %v", err)
	}
}

func TestCosineSimilarity_Clamped(t *testing.T) {
	// Near-parallel high-dim vectors can produce similarity marginally
	// above 1.0 in float math; the result must stay within [-1, 1].
	a := make(Embedding, 128)
	b := make(Embedding, 128)
	for i := range a {
		a[i] = 0.1
		b[i] = 0.1
	}

	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim > 1.0 || sim < -1.0 {
		t.Errorf("similarity %v outside [-1, 1]", sim)
	}
}
