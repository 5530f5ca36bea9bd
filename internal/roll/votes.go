package roll

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/votersentry/voter-sentry/internal/database"
)

var voteHeader = []string{
	"voter_id",
	"claimed_voter_id",
	"registered_constituency",
	"voting_constituency",
	"facenet_embedding",
	"cast_at",
}

// required columns; facenet_embedding and cast_at may be empty per row
var voteRequiredColumns = []string{
	"voter_id",
	"claimed_voter_id",
	"registered_constituency",
	"voting_constituency",
}

// ReadVotes parses vote records from CSV. The facenet_embedding column holds
// a JSON array of floats and may be empty for stations without a camera.
func ReadVotes(r io.Reader) ([]database.VoteRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read vote header: %w", err)
	}
	cols, err := columnIndex(header, voteRequiredColumns)
	if err != nil {
		return nil, fmt.Errorf("vote header: %w", err)
	}

	embeddingCol, hasEmbedding := cols["facenet_embedding"]
	castAtCol, hasCastAt := cols["cast_at"]

	var votes []database.VoteRecord
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read vote record: %w", err)
		}
		line++

		v := database.VoteRecord{
			VoterID:                record[cols["voter_id"]],
			ClaimedVoterID:         record[cols["claimed_voter_id"]],
			RegisteredConstituency: record[cols["registered_constituency"]],
			VotingConstituency:     record[cols["voting_constituency"]],
		}

		if hasEmbedding && record[embeddingCol] != "" {
			var embedding []float32
			if err := json.Unmarshal([]byte(record[embeddingCol]), &embedding); err != nil {
				return nil, fmt.Errorf("line %d: parse embedding: %w", line, err)
			}
			v.Embedding = embedding
		}

		if hasCastAt && record[castAtCol] != "" {
			castAt, err := time.Parse(time.RFC3339, record[castAtCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: parse cast_at: %w", line, err)
			}
			v.CastAt = castAt
		}

		votes = append(votes, v)
	}
	return votes, nil
}

// ReadVotesFile parses vote records from a CSV file.
func ReadVotesFile(path string) ([]database.VoteRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vote file: %w", err)
	}
	defer f.Close()

	return ReadVotes(f)
}

// WriteVotes writes vote records as CSV, embeddings as JSON arrays.
func WriteVotes(w io.Writer, votes []database.VoteRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(voteHeader); err != nil {
		return fmt.Errorf("write vote header: %w", err)
	}

	for i := range votes {
		v := &votes[i]

		var embedding string
		if len(v.Embedding) > 0 {
			data, err := json.Marshal(v.Embedding)
			if err != nil {
				return fmt.Errorf("marshal embedding for %s: %w", v.VoterID, err)
			}
			embedding = string(data)
		}

		var castAt string
		if !v.CastAt.IsZero() {
			castAt = v.CastAt.UTC().Format(time.RFC3339)
		}

		record := []string{
			v.VoterID,
			v.ClaimedVoterID,
			v.RegisteredConstituency,
			v.VotingConstituency,
			embedding,
			castAt,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write vote record %s: %w", v.VoterID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush vote records: %w", err)
	}
	return nil
}

// WriteVotesFile writes vote records to a CSV file.
func WriteVotesFile(path string, votes []database.VoteRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vote file: %w", err)
	}
	defer f.Close()

	if err := WriteVotes(f, votes); err != nil {
		return err
	}
	return f.Close()
}
