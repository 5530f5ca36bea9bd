// Package roll handles enrollment material on disk: the enrollment image
// directory tree, the enrollment manifest, and vote record CSV files.
package roll

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnrollmentImage is a single face image found in the enrollment directory.
type EnrollmentImage struct {
	VoterID      string
	Constituency string
	Path         string
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ScanEnrollmentDir walks an enrollment directory laid out as
// <root>/<constituency>/<voter_id>/<image> and returns all face images
// sorted by constituency, voter ID and path. Hidden entries and
// non-image files are skipped.
func ScanEnrollmentDir(root string) ([]EnrollmentImage, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("enrollment directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("enrollment directory %s is not a directory", root)
	}

	var images []EnrollmentImage

	constituencies, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read enrollment directory: %w", err)
	}

	for _, constituency := range constituencies {
		if !constituency.IsDir() || strings.HasPrefix(constituency.Name(), ".") {
			continue
		}

		constituencyDir := filepath.Join(root, constituency.Name())
		voters, err := os.ReadDir(constituencyDir)
		if err != nil {
			return nil, fmt.Errorf("read constituency directory %s: %w", constituency.Name(), err)
		}

		for _, voter := range voters {
			if !voter.IsDir() || strings.HasPrefix(voter.Name(), ".") {
				continue
			}

			voterDir := filepath.Join(constituencyDir, voter.Name())
			files, err := os.ReadDir(voterDir)
			if err != nil {
				return nil, fmt.Errorf("read voter directory %s: %w", voter.Name(), err)
			}

			for _, file := range files {
				if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
					continue
				}
				if !imageExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
					continue
				}
				images = append(images, EnrollmentImage{
					VoterID:      voter.Name(),
					Constituency: constituency.Name(),
					Path:         filepath.Join(voterDir, file.Name()),
				})
			}
		}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].Constituency != images[j].Constituency {
			return images[i].Constituency < images[j].Constituency
		}
		if images[i].VoterID != images[j].VoterID {
			return images[i].VoterID < images[j].VoterID
		}
		return images[i].Path < images[j].Path
	})

	return images, nil
}
