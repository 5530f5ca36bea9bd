package roll

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ManifestEntry records one enrolled image in the enrollment manifest.
type ManifestEntry struct {
	VoterID      string
	Constituency string
	VoterName    string
	ImagePath    string
}

var manifestHeader = []string{"voter_id", "constituency", "voter_name", "image_path"}

// WriteManifest writes enrollment manifest entries as CSV.
func WriteManifest(w io.Writer, entries []ManifestEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(manifestHeader); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}

	for _, e := range entries {
		record := []string{e.VoterID, e.Constituency, e.VoterName, e.ImagePath}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write manifest entry %s: %w", e.VoterID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return nil
}

// WriteManifestFile writes the enrollment manifest to a file.
func WriteManifestFile(path string, entries []ManifestEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest file: %w", err)
	}
	defer f.Close()

	if err := WriteManifest(f, entries); err != nil {
		return err
	}
	return f.Close()
}

// ReadManifest parses enrollment manifest entries from CSV.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}
	cols, err := columnIndex(header, manifestHeader)
	if err != nil {
		return nil, fmt.Errorf("manifest header: %w", err)
	}

	var entries []ManifestEntry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest entry: %w", err)
		}
		entries = append(entries, ManifestEntry{
			VoterID:      record[cols["voter_id"]],
			Constituency: record[cols["constituency"]],
			VoterName:    record[cols["voter_name"]],
			ImagePath:    record[cols["image_path"]],
		})
	}
	return entries, nil
}

// columnIndex maps required column names to their positions in the header.
func columnIndex(header, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}
