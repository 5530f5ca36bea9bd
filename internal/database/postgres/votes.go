package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/votersentry/voter-sentry/internal/database"
)

const voteColumns = `id, voter_id, claimed_voter_id, registered_constituency, voting_constituency, embedding, cast_at, created_at`

// VoteRepository provides PostgreSQL-backed vote record storage.
type VoteRepository struct {
	pool *Pool
}

// NewVoteRepository creates a new PostgreSQL vote repository.
func NewVoteRepository(pool *Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// GetVotes retrieves all vote records ordered by cast time.
func (r *VoteRepository) GetVotes(ctx context.Context) ([]database.VoteRecord, error) {
	query := `
		SELECT ` + voteColumns + `
		FROM votes
		ORDER BY cast_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// GetVotesByConstituency retrieves vote records cast in a constituency.
func (r *VoteRepository) GetVotesByConstituency(ctx context.Context, constituency string) ([]database.VoteRecord, error) {
	query := `
		SELECT ` + voteColumns + `
		FROM votes
		WHERE voting_constituency = $1
		ORDER BY cast_at, id
	`

	rows, err := r.pool.Query(ctx, query, constituency)
	if err != nil {
		return nil, fmt.Errorf("query votes by constituency: %w", err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// CountVotes returns the total number of vote records.
func (r *VoteRepository) CountVotes(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM votes").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// SaveVotes stores multiple vote records in a single transaction.
func (r *VoteRepository) SaveVotes(ctx context.Context, votes []database.VoteRecord) error {
	if len(votes) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO votes (voter_id, claimed_voter_id, registered_constituency, voting_constituency, embedding, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range votes {
		v := &votes[i]

		// Vote embeddings are optional; a station without a camera still records the vote.
		var vec any
		if len(v.Embedding) > 0 {
			vec = pgvector.NewVector(v.Embedding)
		}

		if _, err := stmt.ExecContext(ctx,
			v.VoterID,
			v.ClaimedVoterID,
			v.RegisteredConstituency,
			v.VotingConstituency,
			vec,
			v.CastAt,
		); err != nil {
			return fmt.Errorf("insert vote %s: %w", v.VoterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanVotes(rows *sql.Rows) ([]database.VoteRecord, error) {
	var votes []database.VoteRecord
	for rows.Next() {
		var v database.VoteRecord
		var vec pgvector.Vector
		var vecValid bool

		// pgvector.Vector has no native NULL handling; scan through a nullable wrapper.
		var nullableVec nullVector
		if err := rows.Scan(
			&v.ID,
			&v.VoterID,
			&v.ClaimedVoterID,
			&v.RegisteredConstituency,
			&v.VotingConstituency,
			&nullableVec,
			&v.CastAt,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		vec, vecValid = nullableVec.vec, nullableVec.valid
		if vecValid {
			v.Embedding = vec.Slice()
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return votes, nil
}

// nullVector scans a pgvector column that may be NULL.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	if err := n.vec.Scan(src); err != nil {
		return err
	}
	n.valid = true
	return nil
}

// Verify interface compliance.
var _ database.VoteReader = (*VoteRepository)(nil)
var _ database.VoteWriter = (*VoteRepository)(nil)
