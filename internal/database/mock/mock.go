// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/votersentry/voter-sentry/internal/database"
)

// MockEnrollmentWriter is an in-memory implementation of database.EnrollmentWriter.
// Similarity search uses real cosine distances so tests exercise actual ordering.
type MockEnrollmentWriter struct {
	mu          sync.RWMutex
	enrollments []database.StoredEnrollment
	nextID      int64

	// Error injection
	GetError         error
	HasError         error
	CountError       error
	FindSimilarError error
	SaveError        error
	DeleteError      error

	// Track calls
	SaveCalls      int
	SaveBatchCalls int
	DeleteCalls    []string
}

// NewMockEnrollmentWriter creates a new mock enrollment store.
func NewMockEnrollmentWriter() *MockEnrollmentWriter {
	return &MockEnrollmentWriter{nextID: 1}
}

// AddEnrollment seeds the mock store without going through Save.
func (m *MockEnrollmentWriter) AddEnrollment(e database.StoredEnrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.nextID
		m.nextID++
	}
	m.enrollments = append(m.enrollments, e)
}

// GetByVoter retrieves all enrollments for a voter.
func (m *MockEnrollmentWriter) GetByVoter(ctx context.Context, voterID string) ([]database.StoredEnrollment, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.StoredEnrollment
	for i := range m.enrollments {
		if m.enrollments[i].VoterID == voterID {
			results = append(results, m.enrollments[i])
		}
	}
	return results, nil
}

// Has checks whether a voter has any enrollment.
func (m *MockEnrollmentWriter) Has(ctx context.Context, voterID string) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.enrollments {
		if m.enrollments[i].VoterID == voterID {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the total number of enrollments.
func (m *MockEnrollmentWriter) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.enrollments), nil
}

// CountVoters returns the number of distinct enrolled voters.
func (m *MockEnrollmentWriter) CountVoters(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for i := range m.enrollments {
		seen[m.enrollments[i].VoterID] = struct{}{}
	}
	return len(seen), nil
}

// GetAll returns all enrollments.
func (m *MockEnrollmentWriter) GetAll(ctx context.Context) ([]database.StoredEnrollment, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]database.StoredEnrollment, len(m.enrollments))
	copy(results, m.enrollments)
	return results, nil
}

// GetByConstituency returns enrollments for a constituency.
func (m *MockEnrollmentWriter) GetByConstituency(ctx context.Context, constituency string) ([]database.StoredEnrollment, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.StoredEnrollment
	for i := range m.enrollments {
		if m.enrollments[i].Constituency == constituency {
			results = append(results, m.enrollments[i])
		}
	}
	return results, nil
}

// FindSimilar returns the nearest enrollments by cosine distance.
func (m *MockEnrollmentWriter) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]database.StoredEnrollment, error) {
	results, _, err := m.FindSimilarWithDistance(ctx, embedding, limit, 2.0)
	return results, err
}

// FindSimilarWithDistance returns the nearest enrollments with their cosine distances.
func (m *MockEnrollmentWriter) FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]database.StoredEnrollment, []float64, error) {
	if m.FindSimilarError != nil {
		return nil, nil, m.FindSimilarError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		enrollment database.StoredEnrollment
		distance   float64
	}

	var candidates []scored
	for i := range m.enrollments {
		dist := database.CosineDistance(embedding, m.enrollments[i].Embedding)
		if dist <= maxDistance {
			candidates = append(candidates, scored{m.enrollments[i], dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]database.StoredEnrollment, 0, len(candidates))
	distances := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.enrollment)
		distances = append(distances, c.distance)
	}
	return results, distances, nil
}

// Save stores a single enrollment.
func (m *MockEnrollmentWriter) Save(ctx context.Context, enrollment *database.StoredEnrollment) (int64, error) {
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	enrollment.ID = m.nextID
	m.nextID++
	m.enrollments = append(m.enrollments, *enrollment)
	return enrollment.ID, nil
}

// SaveBatch stores multiple enrollments.
func (m *MockEnrollmentWriter) SaveBatch(ctx context.Context, enrollments []database.StoredEnrollment) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveBatchCalls++
	for i := range enrollments {
		enrollments[i].ID = m.nextID
		m.nextID++
		m.enrollments = append(m.enrollments, enrollments[i])
	}
	return nil
}

// DeleteByVoter removes all enrollments for a voter.
func (m *MockEnrollmentWriter) DeleteByVoter(ctx context.Context, voterID string) ([]int64, error) {
	if m.DeleteError != nil {
		return nil, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, voterID)

	var ids []int64
	var remaining []database.StoredEnrollment
	for i := range m.enrollments {
		if m.enrollments[i].VoterID == voterID {
			ids = append(ids, m.enrollments[i].ID)
		} else {
			remaining = append(remaining, m.enrollments[i])
		}
	}
	m.enrollments = remaining
	return ids, nil
}

// MockVoteWriter is an in-memory implementation of database.VoteWriter.
type MockVoteWriter struct {
	mu     sync.RWMutex
	votes  []database.VoteRecord
	nextID int64

	// Error injection
	GetVotesError  error
	CountError     error
	SaveVotesError error

	// Track calls
	SaveVotesCalls int
}

// NewMockVoteWriter creates a new mock vote store.
func NewMockVoteWriter() *MockVoteWriter {
	return &MockVoteWriter{nextID: 1}
}

// AddVote seeds the mock store without going through SaveVotes.
func (m *MockVoteWriter) AddVote(v database.VoteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.nextID
		m.nextID++
	}
	m.votes = append(m.votes, v)
}

// GetVotes returns all vote records in insertion order.
func (m *MockVoteWriter) GetVotes(ctx context.Context) ([]database.VoteRecord, error) {
	if m.GetVotesError != nil {
		return nil, m.GetVotesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]database.VoteRecord, len(m.votes))
	copy(results, m.votes)
	return results, nil
}

// GetVotesByConstituency returns vote records cast in a constituency.
func (m *MockVoteWriter) GetVotesByConstituency(ctx context.Context, constituency string) ([]database.VoteRecord, error) {
	if m.GetVotesError != nil {
		return nil, m.GetVotesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.VoteRecord
	for i := range m.votes {
		if m.votes[i].VotingConstituency == constituency {
			results = append(results, m.votes[i])
		}
	}
	return results, nil
}

// CountVotes returns the total number of vote records.
func (m *MockVoteWriter) CountVotes(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.votes), nil
}

// SaveVotes stores multiple vote records.
func (m *MockVoteWriter) SaveVotes(ctx context.Context, votes []database.VoteRecord) error {
	if m.SaveVotesError != nil {
		return m.SaveVotesError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveVotesCalls++
	for i := range votes {
		votes[i].ID = m.nextID
		m.nextID++
		m.votes = append(m.votes, votes[i])
	}
	return nil
}

// Verify interface compliance
var _ database.EnrollmentReader = (*MockEnrollmentWriter)(nil)
var _ database.EnrollmentWriter = (*MockEnrollmentWriter)(nil)
var _ database.VoteReader = (*MockVoteWriter)(nil)
var _ database.VoteWriter = (*MockVoteWriter)(nil)
