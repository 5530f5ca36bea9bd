package database

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// SaveExport writes all enrollments and vote records to a gob file.
func SaveExport(path string, enrollments []StoredEnrollment, votes []VoteRecord) error {
	data := ExportData{
		Version:     currentExportVersion,
		ExportedAt:  time.Now(),
		Enrollments: enrollments,
		Votes:       votes,
	}

	f, err := os.Create(path) //nolint:gosec // path is user-provided CLI argument
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export data: %w", err)
	}
	return nil
}

// LoadExport reads enrollments and vote records from a gob export file.
func LoadExport(path string) (*ExportData, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	var data ExportData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode export data: %w", err)
	}

	if data.Version > currentExportVersion {
		return nil, fmt.Errorf("export version %d is newer than supported version %d", data.Version, currentExportVersion)
	}

	return &data, nil
}
