package handlers

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/votersentry/voter-sentry/internal/database/mock"
)

func TestIdentifyExactMatch(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: unitEmbedding(1),
		K:         1,
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp identifyResponse
	parseJSONResponse(t, rec, &resp)
	if resp.VoterID != "V002" {
		t.Errorf("expected V002, got %s", resp.VoterID)
	}
	if math.Abs(resp.Distance) > 1e-6 {
		t.Errorf("expected distance 0 for exact match, got %f", resp.Distance)
	}
	if resp.Votes != 1 || resp.K != 1 {
		t.Errorf("unexpected vote counts: votes=%d k=%d", resp.Votes, resp.K)
	}
	if len(resp.Candidates) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(resp.Candidates))
	}
	if resp.Candidates[0].Constituency != "north" {
		t.Errorf("expected constituency north, got %s", resp.Candidates[0].Constituency)
	}
}

func TestIdentifyNearestNeighbor(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	// Query close to V001's axis but not exact.
	query := make([]float32, 128)
	query[0] = 0.9
	query[1] = 0.1

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: query,
		K:         1,
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp identifyResponse
	parseJSONResponse(t, rec, &resp)
	if resp.VoterID != "V001" {
		t.Errorf("expected V001, got %s", resp.VoterID)
	}
}

func TestIdentifyDefaultK(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: unitEmbedding(0),
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp identifyResponse
	parseJSONResponse(t, rec, &resp)
	if resp.K != 1 {
		t.Errorf("expected default k=1, got %d", resp.K)
	}
}

func TestIdentifyNegativeK(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: unitEmbedding(0),
		K:         -2,
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestIdentifyEmptyGallery(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), mock.NewMockEnrollmentWriter(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: unitEmbedding(0),
		K:         1,
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestIdentifyKClampedToGallerySize(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", postJSON(t, identifyRequest{
		Embedding: unitEmbedding(0),
		K:         50,
	}))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp identifyResponse
	parseJSONResponse(t, rec, &resp)
	if resp.K != 3 {
		t.Errorf("expected k clamped to 3, got %d", resp.K)
	}
}

func TestIdentifyInvalidBody(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	handler.Identify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestIdentifyImageWithoutEmbedder(t *testing.T) {
	handler := NewIdentifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/identify/image", nil)
	rec := httptest.NewRecorder()
	handler.IdentifyImage(rec, req)

	assertStatusCode(t, rec, http.StatusServiceUnavailable)
}
