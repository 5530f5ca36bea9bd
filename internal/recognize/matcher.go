package recognize

import (
	"fmt"
	"sort"
)

// neighbor is one gallery entry with its distance to the query.
type neighbor struct {
	label    Label
	distance float64
	order    int // enrollment order, keeps sorting deterministic on exact ties
}

// FindNearest predicts the identity of a query embedding by majority vote
// among its k nearest gallery embeddings (Euclidean distance).
//
// Vote ties are broken by the smallest aggregate distance of the tied
// labels' neighbors, then by label ordering. The result is deterministic
// for identical inputs.
func (g *Gallery) FindNearest(query Embedding, k int) (MatchResult, error) {
	if g.Len() == 0 {
		return MatchResult{}, ErrEmptyGallery
	}
	if k < 1 {
		return MatchResult{}, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidParameter, k)
	}
	if k > g.Len() {
		return MatchResult{}, fmt.Errorf("%w: k=%d exceeds gallery size %d", ErrInvalidParameter, k, g.Len())
	}
	if len(query) != g.dim {
		return MatchResult{}, fmt.Errorf("%w: gallery dim %d, query dim %d", ErrDimensionMismatch, g.dim, len(query))
	}

	neighbors := make([]neighbor, 0, g.Len())
	for i, e := range g.entries {
		dist, err := EuclideanDistance(query, e.embedding)
		if err != nil {
			return MatchResult{}, fmt.Errorf("distance to entry %d (%s): %w", i, e.label, err)
		}
		neighbors = append(neighbors, neighbor{label: e.label, distance: dist, order: i})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].distance != neighbors[j].distance {
			return neighbors[i].distance < neighbors[j].distance
		}
		if neighbors[i].label != neighbors[j].label {
			return neighbors[i].label < neighbors[j].label
		}
		return neighbors[i].order < neighbors[j].order
	})

	winner, votes, best := electLabel(neighbors[:k])

	return MatchResult{
		Label:    winner,
		Distance: best,
		Votes:    votes,
		K:        k,
	}, nil
}

// labelTally accumulates votes and distances for one candidate label.
type labelTally struct {
	votes int
	sum   float64
	best  float64
}

// electLabel picks the winning label from the k nearest neighbors.
// Most votes wins; ties go to the smallest aggregate distance, then to
// the lexicographically smallest label.
func electLabel(nearest []neighbor) (Label, int, float64) {
	tallies := make(map[Label]*labelTally, len(nearest))
	for _, n := range nearest {
		t, ok := tallies[n.label]
		if !ok {
			t = &labelTally{best: n.distance}
			tallies[n.label] = t
		}
		t.votes++
		t.sum += n.distance
		if n.distance < t.best {
			t.best = n.distance
		}
	}

	var winner Label
	var won *labelTally
	for label, t := range tallies {
		if won == nil || betterTally(t, label, won, winner) {
			winner = label
			won = t
		}
	}
	return winner, won.votes, won.best
}

// betterTally reports whether candidate (t, label) beats the current winner.
func betterTally(t *labelTally, label Label, won *labelTally, winner Label) bool {
	if t.votes != won.votes {
		return t.votes > won.votes
	}
	if t.sum != won.sum {
		return t.sum < won.sum
	}
	return label < winner
}
