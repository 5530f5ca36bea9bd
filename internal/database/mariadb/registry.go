package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrVoterNotFound is returned when a voter ID is not on the electoral roll.
var ErrVoterNotFound = errors.New("voter not found in electoral roll")

// RegisteredVoter is a single entry on the electoral roll.
type RegisteredVoter struct {
	VoterID      string
	Name         string
	Constituency string
}

// GetVoter looks up a voter on the electoral roll by voter ID.
func (p *Pool) GetVoter(ctx context.Context, voterID string) (*RegisteredVoter, error) {
	query := `SELECT voter_id, name, constituency FROM electoral_roll WHERE voter_id = ?`

	var v RegisteredVoter
	err := p.db.QueryRowContext(ctx, query, voterID).Scan(&v.VoterID, &v.Name, &v.Constituency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query electoral roll: %w", err)
	}

	return &v, nil
}

// ListByConstituency returns all voters registered in a constituency.
func (p *Pool) ListByConstituency(ctx context.Context, constituency string) ([]RegisteredVoter, error) {
	query := `SELECT voter_id, name, constituency FROM electoral_roll WHERE constituency = ? ORDER BY voter_id`

	rows, err := p.db.QueryContext(ctx, query, constituency)
	if err != nil {
		return nil, fmt.Errorf("query electoral roll: %w", err)
	}
	defer rows.Close()

	var voters []RegisteredVoter
	for rows.Next() {
		var v RegisteredVoter
		if err := rows.Scan(&v.VoterID, &v.Name, &v.Constituency); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		voters = append(voters, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return voters, nil
}

// CountVoters returns the total number of registered voters.
func (p *Pool) CountVoters(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM electoral_roll`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count electoral roll: %w", err)
	}
	return count, nil
}

// Constituencies returns the distinct constituencies on the electoral roll.
func (p *Pool) Constituencies(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT constituency FROM electoral_roll ORDER BY constituency`)
	if err != nil {
		return nil, fmt.Errorf("query constituencies: %w", err)
	}
	defer rows.Close()

	var constituencies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		constituencies = append(constituencies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return constituencies, nil
}
