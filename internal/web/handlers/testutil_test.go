package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/database/mock"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	cfg := &config.Config{
		Embedder: config.EmbedderConfig{
			Model: "facenet",
			Dim:   128,
		},
	}
	cfg.Thresholds.Models = map[string]config.ModelThresholds{
		"facenet": {Verify: 0.70, Identify: 0.90},
	}
	return cfg
}

// unitEmbedding returns a 128-dim unit vector along the given axis
func unitEmbedding(axis int) []float32 {
	e := make([]float32, 128)
	e[axis] = 1.0
	return e
}

// seedEnrollments creates a mock enrollment store with three voters
func seedEnrollments(t *testing.T) *mock.MockEnrollmentWriter {
	t.Helper()
	store := mock.NewMockEnrollmentWriter()
	store.AddEnrollment(database.StoredEnrollment{
		VoterID:      "V001",
		Constituency: "north",
		VoterName:    "Jana Novotna",
		Embedding:    unitEmbedding(0),
		Model:        "facenet",
		Dim:          128,
	})
	store.AddEnrollment(database.StoredEnrollment{
		VoterID:      "V002",
		Constituency: "north",
		VoterName:    "Jiri Novak",
		Embedding:    unitEmbedding(1),
		Model:        "facenet",
		Dim:          128,
	})
	store.AddEnrollment(database.StoredEnrollment{
		VoterID:      "V003",
		Constituency: "south",
		VoterName:    "Petr Svoboda",
		Embedding:    unitEmbedding(2),
		Model:        "facenet",
		Dim:          128,
	})
	return store
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
