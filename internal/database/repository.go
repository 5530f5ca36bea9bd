package database

import (
	"context"
)

// EnrollmentReader provides read-only access to enrolled voter embeddings
type EnrollmentReader interface {
	// GetByVoter retrieves all enrollments for a voter ID
	GetByVoter(ctx context.Context, voterID string) ([]StoredEnrollment, error)
	// Has checks if any enrollment exists for the given voter ID
	Has(ctx context.Context, voterID string) (bool, error)
	// Count returns the total number of enrollments stored
	Count(ctx context.Context) (int, error)
	// CountVoters returns the number of distinct enrolled voters
	CountVoters(ctx context.Context) (int, error)
	// GetAll retrieves every enrollment, used to build the in-memory gallery
	GetAll(ctx context.Context) ([]StoredEnrollment, error)
	// GetByConstituency retrieves all enrollments registered in a constituency
	GetByConstituency(ctx context.Context, constituency string) ([]StoredEnrollment, error)
	// FindSimilar finds the most similar enrollments using cosine distance
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]StoredEnrollment, error)
	// FindSimilarWithDistance finds similar enrollments and returns distances
	FindSimilarWithDistance(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]StoredEnrollment, []float64, error)
}

// EnrollmentWriter provides write access to enrolled voter embeddings
type EnrollmentWriter interface {
	EnrollmentReader

	// Save stores one enrollment and returns its assigned ID
	Save(ctx context.Context, enrollment *StoredEnrollment) (int64, error)

	// SaveBatch stores multiple enrollments in a single transaction
	SaveBatch(ctx context.Context, enrollments []StoredEnrollment) error

	// DeleteByVoter removes all enrollments for a voter.
	// Returns the deleted enrollment IDs for HNSW cleanup.
	DeleteByVoter(ctx context.Context, voterID string) ([]int64, error)
}

// VoteReader provides read-only access to captured vote records
type VoteReader interface {
	// GetVotes retrieves all vote records ordered by cast time
	GetVotes(ctx context.Context) ([]VoteRecord, error)
	// GetVotesByConstituency retrieves vote records cast in a constituency
	GetVotesByConstituency(ctx context.Context, constituency string) ([]VoteRecord, error)
	// CountVotes returns the total number of vote records
	CountVotes(ctx context.Context) (int, error)
}

// VoteWriter provides write access to vote records
type VoteWriter interface {
	VoteReader

	// SaveVotes stores multiple vote records in a single transaction
	SaveVotes(ctx context.Context, votes []VoteRecord) error
}
