package database

import (
	"time"
)

// StoredEnrollment is one enrolled face embedding for a voter.
// A voter may have several enrollments (multiple enrollment photos).
type StoredEnrollment struct {
	ID           int64
	VoterID      string
	Constituency string
	VoterName    string
	ImagePath    string
	Embedding    []float32
	Model        string
	Dim          int
	CreatedAt    time.Time
}

// VoteRecord is one captured voting event with the face embedding taken
// at the polling station.
type VoteRecord struct {
	ID                     int64
	VoterID                string // identity predicted or presented at the station
	ClaimedVoterID         string // identity the person claimed to be
	RegisteredConstituency string
	VotingConstituency     string
	Embedding              []float32
	CastAt                 time.Time
	CreatedAt              time.Time
}

// ExportData contains all enrollments and vote records for export/backup.
type ExportData struct {
	Version     int
	ExportedAt  time.Time
	Enrollments []StoredEnrollment
	Votes       []VoteRecord
}

const currentExportVersion = 1
