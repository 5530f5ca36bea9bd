package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func postJSON(t *testing.T, body any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	return bytes.NewBuffer(data)
}

func TestVerifyIdenticalEmbeddings(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", postJSON(t, verifyRequest{
		EmbeddingA: unitEmbedding(0),
		EmbeddingB: unitEmbedding(0),
	}))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	assertContentType(t, rec, "application/json")

	var resp verifyResponse
	parseJSONResponse(t, rec, &resp)
	if math.Abs(resp.Similarity-1.0) > 1e-6 {
		t.Errorf("expected similarity 1.0, got %f", resp.Similarity)
	}
	if !resp.Verified {
		t.Error("expected verified")
	}
	if math.Abs(resp.Threshold-0.70) > 1e-9 {
		t.Errorf("expected default threshold 0.70, got %f", resp.Threshold)
	}
}

func TestVerifyOrthogonalEmbeddings(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	threshold := 0.5
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", postJSON(t, verifyRequest{
		EmbeddingA: unitEmbedding(0),
		EmbeddingB: unitEmbedding(1),
		Threshold:  &threshold,
	}))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp verifyResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Similarity != 0 {
		t.Errorf("expected similarity 0, got %f", resp.Similarity)
	}
	if resp.Verified {
		t.Error("expected not verified")
	}
}

func TestVerifyDimensionMismatch(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", postJSON(t, verifyRequest{
		EmbeddingA: unitEmbedding(0),
		EmbeddingB: []float32{1, 0, 0},
	}))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestVerifyZeroVector(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", postJSON(t, verifyRequest{
		EmbeddingA: make([]float32, 128),
		EmbeddingB: unitEmbedding(0),
	}))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestVerifyInvalidThreshold(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	threshold := 1.5
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", postJSON(t, verifyRequest{
		EmbeddingA: unitEmbedding(0),
		EmbeddingB: unitEmbedding(0),
		Threshold:  &threshold,
	}))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestVerifyInvalidBody(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, errInvalidRequestBody)
}

func TestVerifyImageWithoutEmbedder(t *testing.T) {
	handler := NewVerifyHandler(testConfig(), seedEnrollments(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify/image", nil)
	rec := httptest.NewRecorder()
	handler.VerifyImage(rec, req)

	assertStatusCode(t, rec, http.StatusServiceUnavailable)
}
