package database

import (
	"context"
	"fmt"
)

// HNSWRebuilder is an interface for repositories that support HNSW index rebuilding
type HNSWRebuilder interface {
	// RebuildHNSW rebuilds the in-memory HNSW index
	RebuildHNSW(ctx context.Context) error
	// HNSWCount returns the number of items in the HNSW index
	HNSWCount() int
	// IsHNSWEnabled returns whether HNSW is enabled
	IsHNSWEnabled() bool
	// SaveHNSWIndex saves the current index to disk (if path configured)
	SaveHNSWIndex() error
}

var (
	postgresEnrollmentReader func() EnrollmentReader
	postgresEnrollmentWriter func() EnrollmentWriter
	postgresVoteWriter       func() VoteWriter
	postgresEnrollmentHNSW   HNSWRebuilder // Singleton for enrollment HNSW rebuilding
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	enrollmentReader func() EnrollmentReader,
	enrollmentWriter func() EnrollmentWriter,
	voteWriter func() VoteWriter,
) {
	postgresEnrollmentReader = enrollmentReader
	postgresEnrollmentWriter = enrollmentWriter
	postgresVoteWriter = voteWriter
	postgresInitialized = true
}

// RegisterEnrollmentHNSWRebuilder registers the HNSW rebuilder for the enrollment repository.
// This allows rebuilding the in-memory HNSW index without knowing the concrete type.
func RegisterEnrollmentHNSWRebuilder(rebuilder HNSWRebuilder) {
	postgresEnrollmentHNSW = rebuilder
}

// GetEnrollmentHNSWRebuilder returns the registered enrollment HNSW rebuilder, or nil if not registered.
func GetEnrollmentHNSWRebuilder() HNSWRebuilder {
	return postgresEnrollmentHNSW
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetEnrollmentReader returns an EnrollmentReader from the PostgreSQL backend
func GetEnrollmentReader(ctx context.Context) (EnrollmentReader, error) {
	if !IsInitialized() {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresEnrollmentReader == nil {
		return nil, fmt.Errorf("PostgreSQL enrollment reader not registered")
	}
	return postgresEnrollmentReader(), nil
}

// GetEnrollmentWriter returns an EnrollmentWriter from the PostgreSQL backend
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	if !IsInitialized() {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresEnrollmentWriter == nil {
		return nil, fmt.Errorf("PostgreSQL enrollment writer not registered")
	}
	return postgresEnrollmentWriter(), nil
}

// GetVoteReader returns a VoteReader from the PostgreSQL backend
func GetVoteReader(ctx context.Context) (VoteReader, error) {
	if !IsInitialized() {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresVoteWriter == nil {
		return nil, fmt.Errorf("PostgreSQL vote writer not registered")
	}
	return postgresVoteWriter(), nil
}

// GetVoteWriter returns a VoteWriter from the PostgreSQL backend
func GetVoteWriter(ctx context.Context) (VoteWriter, error) {
	if !IsInitialized() {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresVoteWriter == nil {
		return nil, fmt.Errorf("PostgreSQL vote writer not registered")
	}
	return postgresVoteWriter(), nil
}
