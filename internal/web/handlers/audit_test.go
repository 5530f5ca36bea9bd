package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/database/mock"
	"github.com/votersentry/voter-sentry/internal/fraud"
)

func TestAuditJSON(t *testing.T) {
	votes := mock.NewMockVoteWriter()
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), votes)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", postJSON(t, auditJSONRequest{
		Votes: []database.VoteRecord{
			{VoterID: "V001", ClaimedVoterID: "V001", RegisteredConstituency: "north", VotingConstituency: "north"},
			{VoterID: "V002", ClaimedVoterID: "V002", RegisteredConstituency: "north", VotingConstituency: "south"},
			{VoterID: "V004", ClaimedVoterID: "V001", RegisteredConstituency: "north", VotingConstituency: "north"},
		},
	}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Audit(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp auditResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Report.TotalVotes != 3 {
		t.Errorf("expected 3 votes, got %d", resp.Report.TotalVotes)
	}
	if resp.Report.SuspiciousVotes != 2 {
		t.Errorf("expected 2 suspicious votes, got %d", resp.Report.SuspiciousVotes)
	}
	if resp.Report.FraudCounts[fraud.FraudIdentityTheft] != 1 {
		t.Errorf("expected 1 identity theft, got %d", resp.Report.FraudCounts[fraud.FraudIdentityTheft])
	}
	if resp.Report.FraudCounts[fraud.FraudCrossConstituency] != 1 {
		t.Errorf("expected 1 cross-constituency vote, got %d", resp.Report.FraudCounts[fraud.FraudCrossConstituency])
	}
	if len(resp.Votes) != 3 {
		t.Errorf("expected 3 classified votes, got %d", len(resp.Votes))
	}

	// Not stored without ?store=true.
	if votes.SaveVotesCalls != 0 {
		t.Errorf("expected no stored votes, got %d calls", votes.SaveVotesCalls)
	}
}

func TestAuditCSVUploadWithStore(t *testing.T) {
	votes := mock.NewMockVoteWriter()
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), votes)

	csv := "voter_id,claimed_voter_id,registered_constituency,voting_constituency\n" +
		"V001,V001,north,north\n" +
		"V001,V001,north,north\n"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "votes.csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit?store=true", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Audit(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp auditResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Report.FraudCounts[fraud.FraudDoubleVoting] != 2 {
		t.Errorf("expected 2 double-voting records, got %d", resp.Report.FraudCounts[fraud.FraudDoubleVoting])
	}

	count, err := votes.CountVotes(req.Context())
	if err != nil {
		t.Fatalf("CountVotes failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 stored votes, got %d", count)
	}
}

func TestAuditEmptyVotes(t *testing.T) {
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), mock.NewMockVoteWriter())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", postJSON(t, auditJSONRequest{}))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Audit(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestAuditInvalidBody(t *testing.T) {
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), mock.NewMockVoteWriter())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", bytes.NewBufferString("nope"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Audit(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, errInvalidRequestBody)
}

func TestListVotes(t *testing.T) {
	votes := mock.NewMockVoteWriter()
	votes.AddVote(database.VoteRecord{VoterID: "V001", VotingConstituency: "north"})
	votes.AddVote(database.VoteRecord{VoterID: "V002", VotingConstituency: "south"})
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), votes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/votes", nil)
	rec := httptest.NewRecorder()
	handler.ListVotes(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Votes []database.VoteRecord `json:"votes"`
		Count int                   `json:"count"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 votes, got %d", resp.Count)
	}
}

func TestListVotesByConstituency(t *testing.T) {
	votes := mock.NewMockVoteWriter()
	votes.AddVote(database.VoteRecord{VoterID: "V001", VotingConstituency: "north"})
	votes.AddVote(database.VoteRecord{VoterID: "V002", VotingConstituency: "south"})
	handler := NewAuditHandler(testConfig(), seedEnrollments(t), votes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/votes?constituency=north", nil)
	rec := httptest.NewRecorder()
	handler.ListVotes(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Count int `json:"count"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("expected 1 vote in north, got %d", resp.Count)
	}
}
