package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"
	"github.com/votersentry/voter-sentry/internal/database"
)

const enrollmentColumns = `id, voter_id, constituency, voter_name, image_path, embedding, model, dim, created_at`

// EnrollmentRepository provides PostgreSQL-backed enrollment storage with
// an optional in-memory HNSW index for fast similarity search.
type EnrollmentRepository struct {
	pool          *Pool
	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string // Path to persist HNSW index (optional)
	hnswMu        sync.RWMutex
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetByVoter retrieves all enrollments for a voter ID.
func (r *EnrollmentRepository) GetByVoter(ctx context.Context, voterID string) ([]database.StoredEnrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE voter_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, voterID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// Has checks if any enrollment exists for the given voter ID.
func (r *EnrollmentRepository) Has(ctx context.Context, voterID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM enrollments WHERE voter_id = $1)", voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment exists: %w", err)
	}
	return exists, nil
}

// Count returns the total number of enrollments stored.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// CountVoters returns the number of distinct enrolled voters.
func (r *EnrollmentRepository) CountVoters(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT voter_id) FROM enrollments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

// GetAll retrieves every enrollment, used to build the in-memory gallery.
func (r *EnrollmentRepository) GetAll(ctx context.Context) ([]database.StoredEnrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all enrollments: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// GetByConstituency retrieves all enrollments registered in a constituency.
func (r *EnrollmentRepository) GetByConstituency(ctx context.Context, constituency string) ([]database.StoredEnrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE constituency = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, constituency)
	if err != nil {
		return nil, fmt.Errorf("query enrollments by constituency: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// FindSimilar finds enrollments with similar embeddings using cosine distance.
// Uses in-memory HNSW index if enabled, otherwise falls back to PostgreSQL.
func (r *EnrollmentRepository) FindSimilar(
	ctx context.Context, embedding []float32, limit int,
) ([]database.StoredEnrollment, error) {
	if r.IsHNSWEnabled() {
		return r.findSimilarHNSW(embedding, limit)
	}
	return r.findSimilarPostgres(ctx, embedding, limit)
}

// findSimilarHNSW uses the in-memory HNSW index for similarity search.
func (r *EnrollmentRepository) findSimilarHNSW(embedding []float32, limit int) ([]database.StoredEnrollment, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndex == nil {
		return nil, errors.New("HNSW index not initialized")
	}

	ids, _, err := r.hnswIndex.Search(embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("HNSW search: %w", err)
	}

	results := make([]database.StoredEnrollment, 0, len(ids))
	for _, id := range ids {
		if e := r.hnswIndex.GetEnrollment(id); e != nil {
			results = append(results, *e)
		}
	}

	return results, nil
}

// findSimilarPostgres uses PostgreSQL for similarity search with ef_search optimization.
func (r *EnrollmentRepository) findSimilarPostgres(
	ctx context.Context, embedding []float32, limit int,
) ([]database.StoredEnrollment, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Set ef_search to match the in-memory HNSW configuration.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := tx.QueryContext(ctx, query, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar enrollments: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// FindSimilarWithDistance finds similar enrollments and returns distances.
// Uses in-memory HNSW index if enabled, otherwise falls back to PostgreSQL.
func (r *EnrollmentRepository) FindSimilarWithDistance(
	ctx context.Context, embedding []float32, limit int, maxDistance float64,
) ([]database.StoredEnrollment, []float64, error) {
	if r.IsHNSWEnabled() {
		return r.findSimilarWithDistanceHNSW(embedding, limit, maxDistance)
	}
	return r.findSimilarWithDistancePostgres(ctx, embedding, limit, maxDistance)
}

// findSimilarWithDistanceHNSW uses the in-memory HNSW index for similarity search.
func (r *EnrollmentRepository) findSimilarWithDistanceHNSW(
	embedding []float32, limit int, maxDistance float64,
) ([]database.StoredEnrollment, []float64, error) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndex == nil {
		return nil, nil, errors.New("HNSW index not initialized")
	}

	// Request more candidates to ensure we have enough after distance filtering.
	searchK := limit * database.HNSWSearchMultiplier
	searchK = max(searchK, 100) // Minimum search size for better recall

	ids, distances, err := r.hnswIndex.Search(embedding, searchK)
	if err != nil {
		return nil, nil, fmt.Errorf("HNSW search: %w", err)
	}

	results := make([]database.StoredEnrollment, 0, limit)
	distancesOut := make([]float64, 0, limit)

	for i, id := range ids {
		if distances[i] >= maxDistance {
			continue
		}
		e := r.hnswIndex.GetEnrollment(id)
		if e == nil {
			continue
		}
		results = append(results, *e)
		distancesOut = append(distancesOut, distances[i])
		if len(results) >= limit {
			break
		}
	}

	return results, distancesOut, nil
}

// findSimilarWithDistancePostgres uses PostgreSQL for similarity search with ef_search optimization.
func (r *EnrollmentRepository) findSimilarWithDistancePostgres(
	ctx context.Context, embedding []float32, limit int, maxDistance float64,
) ([]database.StoredEnrollment, []float64, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT ` + enrollmentColumns + `,
		       embedding <=> $1::vector AS distance
		FROM enrollments
		WHERE embedding <=> $1::vector < $2
		ORDER BY distance
		LIMIT $3
	`

	vec := pgvector.NewVector(embedding)
	rows, err := tx.QueryContext(ctx, query, vec, maxDistance, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []database.StoredEnrollment
	var distances []float64

	for rows.Next() {
		var dist float64
		e, err := scanEnrollmentRow(rows, &dist)
		if err != nil {
			return nil, nil, err
		}
		enrollments = append(enrollments, e)
		distances = append(distances, dist)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate enrollments: %w", err)
	}

	return enrollments, distances, nil
}

// Save stores one enrollment and returns its assigned ID.
func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *database.StoredEnrollment) (int64, error) {
	vec := pgvector.NewVector(enrollment.Embedding)

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO enrollments (voter_id, constituency, voter_name, image_path, embedding, model, dim)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7)
		RETURNING id
	`,
		enrollment.VoterID,
		enrollment.Constituency,
		nullString(enrollment.VoterName),
		nullString(enrollment.ImagePath),
		vec,
		enrollment.Model,
		enrollment.Dim,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert enrollment for %s: %w", enrollment.VoterID, err)
	}

	if r.IsHNSWEnabled() {
		saved := *enrollment
		saved.ID = id
		r.hnswMu.Lock()
		_ = r.hnswIndex.Add(&saved)
		r.hnswMu.Unlock()
	}

	return id, nil
}

// SaveBatch stores multiple enrollments in a single transaction.
func (r *EnrollmentRepository) SaveBatch(ctx context.Context, enrollments []database.StoredEnrollment) error {
	if len(enrollments) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO enrollments (voter_id, constituency, voter_name, image_path, embedding, model, dim)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range enrollments {
		e := &enrollments[i]
		vec := pgvector.NewVector(e.Embedding)
		if _, err := stmt.ExecContext(ctx,
			e.VoterID,
			e.Constituency,
			nullString(e.VoterName),
			nullString(e.ImagePath),
			vec,
			e.Model,
			e.Dim,
		); err != nil {
			return fmt.Errorf("insert enrollment %s: %w", e.VoterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteByVoter removes all enrollments for a voter.
// Returns the deleted enrollment IDs for HNSW cleanup.
func (r *EnrollmentRepository) DeleteByVoter(ctx context.Context, voterID string) ([]int64, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := scanEnrollmentIDs(ctx, tx, voterID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE voter_id = $1", voterID); err != nil {
		return nil, fmt.Errorf("delete enrollments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if r.IsHNSWEnabled() {
		r.hnswMu.Lock()
		for _, id := range ids {
			r.hnswIndex.Delete(id)
		}
		r.hnswMu.Unlock()
	}

	return ids, nil
}

// tryLoadEnrollmentIndex attempts to load the HNSW index from disk.
// Returns true if the index was loaded and is not stale. A missing or
// unreadable .enrollments sidecar is not fatal: the graph alone is loaded
// and the enrollment metadata is refetched from PostgreSQL.
func (r *EnrollmentRepository) tryLoadEnrollmentIndex(ctx context.Context, indexPath string, dbCount, dbMaxID int64) bool {
	metadata, metaErr := database.LoadHNSWMetadata(indexPath)
	if metaErr != nil {
		fmt.Printf("Enrollment index: metadata file error: %v (will rebuild)\n", metaErr)
		return false
	}
	if metadata.EnrollmentCount != dbCount || metadata.MaxEnrollmentID != dbMaxID {
		fmt.Printf("Enrollment index: stale (db: count=%d max_id=%d, cached: count=%d max_id=%d) (will rebuild)\n",
			dbCount, dbMaxID, metadata.EnrollmentCount, metadata.MaxEnrollmentID)
		return false
	}

	r.hnswIndex = database.NewHNSWIndex()
	if err := r.hnswIndex.LoadWithEnrollmentMetadata(indexPath); err != nil {
		fmt.Printf("Enrollment index: %v, loading graph without sidecar\n", err)
		return r.tryLoadGraphOnly(ctx, indexPath)
	}
	if r.hnswIndex.IsEmpty() {
		fmt.Printf("Enrollment index: loaded graph is empty (will rebuild)\n")
		return false
	}
	fmt.Printf("Enrollment index: loaded from disk (fresh)\n")
	return true
}

// tryLoadGraphOnly loads the bare HNSW graph and rebuilds the enrollment
// lookup from the database.
func (r *EnrollmentRepository) tryLoadGraphOnly(ctx context.Context, indexPath string) bool {
	r.hnswIndex = database.NewHNSWIndex()
	if err := r.hnswIndex.Load(indexPath); err != nil {
		fmt.Printf("Enrollment index: failed to load graph: %v (will rebuild)\n", err)
		return false
	}
	if r.hnswIndex.IsEmpty() {
		fmt.Printf("Enrollment index: no graph on disk (will rebuild)\n")
		return false
	}

	enrollments, err := r.GetAll(ctx)
	if err != nil {
		fmt.Printf("Enrollment index: failed to load enrollments: %v (will rebuild)\n", err)
		return false
	}
	r.hnswIndex.RebuildFromEnrollments(enrollments)
	fmt.Printf("Enrollment index: graph loaded, metadata rebuilt from database (fresh)\n")
	return true
}

// EnableHNSW loads or builds an in-memory HNSW index for O(log N) similarity search.
// If indexPath is provided, it will try to load from disk first and save after building.
// This should be called once at startup.
func (r *EnrollmentRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	var dbCount, dbMaxID int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(MAX(id), 0) FROM enrollments").Scan(&dbCount, &dbMaxID)
	if err != nil {
		return fmt.Errorf("failed to get enrollment stats: %w", err)
	}

	if indexPath != "" && r.tryLoadEnrollmentIndex(ctx, indexPath, dbCount, dbMaxID) {
		r.hnswEnabled = true
		return nil
	}

	enrollments, err := r.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enrollments: %w", err)
	}

	r.hnswIndex = database.NewHNSWIndex()
	if err := r.hnswIndex.BuildFromEnrollments(enrollments); err != nil {
		return fmt.Errorf("failed to build HNSW index: %w", err)
	}

	if indexPath != "" && len(enrollments) > 0 {
		metadata := database.HNSWIndexMetadata{EnrollmentCount: dbCount, MaxEnrollmentID: dbMaxID}
		if err := r.hnswIndex.SaveWithEnrollmentMetadata(indexPath, metadata); err != nil {
			fmt.Printf("Warning: failed to save HNSW index to disk: %v\n", err)
		}
	}

	r.hnswEnabled = true
	return nil
}

// DisableHNSW disables the in-memory HNSW index, falling back to PostgreSQL queries.
func (r *EnrollmentRepository) DisableHNSW() {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswEnabled = false
	r.hnswIndex = nil
}

// IsHNSWEnabled returns whether the in-memory HNSW index is enabled.
func (r *EnrollmentRepository) IsHNSWEnabled() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

// HNSWCount returns the number of enrollments in the HNSW index.
func (r *EnrollmentRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// RebuildHNSW rebuilds the HNSW index from PostgreSQL data.
func (r *EnrollmentRepository) RebuildHNSW(ctx context.Context) error {
	r.hnswMu.RLock()
	indexPath := r.hnswIndexPath
	r.hnswMu.RUnlock()
	return r.EnableHNSW(ctx, indexPath)
}

// SaveHNSWIndex saves the current HNSW index to disk (if path configured).
func (r *EnrollmentRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" {
		return nil // No path configured, nothing to save
	}
	if r.hnswIndex == nil {
		return nil // No index to save
	}

	ctx := context.Background()
	var count, maxID int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(MAX(id), 0) FROM enrollments").Scan(&count, &maxID)
	if err != nil {
		return fmt.Errorf("failed to get enrollment stats: %w", err)
	}

	metadata := database.HNSWIndexMetadata{
		EnrollmentCount: count,
		MaxEnrollmentID: maxID,
	}

	if err := r.hnswIndex.SaveWithEnrollmentMetadata(r.hnswIndexPath, metadata); err != nil {
		return fmt.Errorf("saving HNSW enrollment index: %w", err)
	}

	return nil
}

// nullString converts an optional string to a SQL nullable value.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// scanEnrollmentRow scans a single row into a StoredEnrollment, with optional
// extra scan destinations appended after the standard columns (e.g., a distance).
func scanEnrollmentRow(scanner interface{ Scan(...any) error }, extraDest ...any) (database.StoredEnrollment, error) {
	var e database.StoredEnrollment
	var vec pgvector.Vector
	var voterName, imagePath sql.NullString

	dest := make([]any, 0, 9+len(extraDest))
	dest = append(dest,
		&e.ID,
		&e.VoterID,
		&e.Constituency,
		&voterName,
		&imagePath,
		&vec,
		&e.Model,
		&e.Dim,
		&e.CreatedAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		return e, fmt.Errorf("scan enrollment: %w", err)
	}

	e.Embedding = vec.Slice()
	if voterName.Valid {
		e.VoterName = voterName.String
	}
	if imagePath.Valid {
		e.ImagePath = imagePath.String
	}

	return e, nil
}

func scanEnrollments(rows *sql.Rows) ([]database.StoredEnrollment, error) {
	var enrollments []database.StoredEnrollment
	for rows.Next() {
		e, err := scanEnrollmentRow(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, nil
}

// scanEnrollmentIDs reads enrollment IDs for a voter and properly closes the rows.
func scanEnrollmentIDs(ctx context.Context, tx *sql.Tx, voterID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM enrollments WHERE voter_id = $1", voterID)
	if err != nil {
		return nil, fmt.Errorf("query enrollment IDs: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrollment ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment IDs: %w", err)
	}
	return ids, nil
}

// Verify interface compliance.
var _ database.EnrollmentReader = (*EnrollmentRepository)(nil)
var _ database.EnrollmentWriter = (*EnrollmentRepository)(nil)
var _ database.HNSWRebuilder = (*EnrollmentRepository)(nil)
