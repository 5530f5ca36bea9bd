package roll

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/votersentry/voter-sentry/internal/database"
)

func TestNormalizeVoterName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Jana Novotna", "jana novotna"},
		{"diacritics", "Jiří Novák", "jiri novak"},
		{"dash", "Marie Curie-Sklodowska", "marie curie sklodowska"},
		{"extra spaces", "  Jana   Novotna ", "jana novotna"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeVoterName(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	if got := RemoveDiacritics("Příliš žluťoučký kůň"); got != "Prilis zlutoucky kun" {
		t.Errorf("Unexpected result: %s", got)
	}
}

func TestScanEnrollmentDir(t *testing.T) {
	root := t.TempDir()

	mustWrite := func(parts ...string) {
		t.Helper()
		path := filepath.Join(append([]string{root}, parts...)...)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("fake"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	mustWrite("north", "V002", "face1.jpg")
	mustWrite("north", "V001", "face1.jpg")
	mustWrite("north", "V001", "face2.JPG")
	mustWrite("south", "V003", "face.png")
	mustWrite("south", "V003", "notes.txt")
	mustWrite("south", "V003", ".hidden.jpg")

	images, err := ScanEnrollmentDir(root)
	if err != nil {
		t.Fatalf("ScanEnrollmentDir failed: %v", err)
	}

	if len(images) != 4 {
		t.Fatalf("Expected 4 images, got %d", len(images))
	}

	// Sorted by constituency, voter, path.
	if images[0].VoterID != "V001" || images[0].Constituency != "north" {
		t.Errorf("Unexpected first image: %+v", images[0])
	}
	if images[2].VoterID != "V002" {
		t.Errorf("Expected V002 third, got %s", images[2].VoterID)
	}
	if images[3].Constituency != "south" || images[3].VoterID != "V003" {
		t.Errorf("Unexpected last image: %+v", images[3])
	}
	if !strings.HasSuffix(images[3].Path, "face.png") {
		t.Errorf("Expected png image, got %s", images[3].Path)
	}
}

func TestScanEnrollmentDirMissing(t *testing.T) {
	if _, err := ScanEnrollmentDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	entries := []ManifestEntry{
		{VoterID: "V001", Constituency: "north", VoterName: "Jana Novotna", ImagePath: "north/V001/face1.jpg"},
		{VoterID: "V002", Constituency: "south", VoterName: "Jiri Novak", ImagePath: "south/V002/face1.jpg"},
	}

	var buf bytes.Buffer
	if err := WriteManifest(&buf, entries); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	got, err := ReadManifest(&buf)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0] != entries[0] || got[1] != entries[1] {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestReadManifestMissingColumn(t *testing.T) {
	csv := "voter_id,constituency\nV001,north\n"
	if _, err := ReadManifest(strings.NewReader(csv)); err == nil {
		t.Error("Expected error for missing column")
	}
}

func TestVotesRoundTrip(t *testing.T) {
	castAt := time.Date(2024, 10, 12, 9, 30, 0, 0, time.UTC)
	votes := []database.VoteRecord{
		{
			VoterID:                "V001",
			ClaimedVoterID:         "V001",
			RegisteredConstituency: "north",
			VotingConstituency:     "north",
			Embedding:              []float32{0.1, 0.2, 0.3},
			CastAt:                 castAt,
		},
		{
			VoterID:                "V002",
			ClaimedVoterID:         "V005",
			RegisteredConstituency: "south",
			VotingConstituency:     "north",
		},
	}

	var buf bytes.Buffer
	if err := WriteVotes(&buf, votes); err != nil {
		t.Fatalf("WriteVotes failed: %v", err)
	}

	got, err := ReadVotes(&buf)
	if err != nil {
		t.Fatalf("ReadVotes failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 votes, got %d", len(got))
	}

	if got[0].VoterID != "V001" || got[0].ClaimedVoterID != "V001" {
		t.Errorf("Unexpected first vote: %+v", got[0])
	}
	if len(got[0].Embedding) != 3 || got[0].Embedding[1] != 0.2 {
		t.Errorf("Embedding round trip failed: %v", got[0].Embedding)
	}
	if !got[0].CastAt.Equal(castAt) {
		t.Errorf("Expected cast_at %v, got %v", castAt, got[0].CastAt)
	}

	if got[1].Embedding != nil {
		t.Errorf("Expected nil embedding, got %v", got[1].Embedding)
	}
	if !got[1].CastAt.IsZero() {
		t.Errorf("Expected zero cast_at, got %v", got[1].CastAt)
	}
	if got[1].ClaimedVoterID != "V005" {
		t.Errorf("Expected claimed voter V005, got %s", got[1].ClaimedVoterID)
	}
}

func TestReadVotesBadEmbedding(t *testing.T) {
	csv := "voter_id,claimed_voter_id,registered_constituency,voting_constituency,facenet_embedding\n" +
		"V001,V001,north,north,\"[0.1, not-a-number]\"\n"
	if _, err := ReadVotes(strings.NewReader(csv)); err == nil {
		t.Error("Expected error for malformed embedding")
	}
}

func TestReadVotesMissingColumn(t *testing.T) {
	csv := "voter_id,claimed_voter_id\nV001,V001\n"
	if _, err := ReadVotes(strings.NewReader(csv)); err == nil {
		t.Error("Expected error for missing required column")
	}
}

func TestVotesFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.csv")
	votes := []database.VoteRecord{
		{VoterID: "V001", ClaimedVoterID: "V001", RegisteredConstituency: "north", VotingConstituency: "north"},
	}

	if err := WriteVotesFile(path, votes); err != nil {
		t.Fatalf("WriteVotesFile failed: %v", err)
	}

	got, err := ReadVotesFile(path)
	if err != nil {
		t.Fatalf("ReadVotesFile failed: %v", err)
	}
	if len(got) != 1 || got[0].VoterID != "V001" {
		t.Errorf("Unexpected votes: %+v", got)
	}
}
