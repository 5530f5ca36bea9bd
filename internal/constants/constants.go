// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Pagination constants
const (
	// DefaultPageSize is the default number of enrollments to fetch per page
	DefaultPageSize = 1000
)

// Identity matching constants
const (
	// DefaultNeighbors is the default k for k-NN identification
	DefaultNeighbors = 1
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) for images
	// sent to the embedding service
	MaxImageSize = 1024
)

// Handler constants
const (
	// DefaultHandlerPageSize is the page size for paginated handler endpoints
	DefaultHandlerPageSize = 100

	// MaxUploadSize is the maximum file upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)
