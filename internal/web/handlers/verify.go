package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/recognize"
)

// VerifyHandler handles 1:1 face verification requests.
type VerifyHandler struct {
	config      *config.Config
	enrollments database.EnrollmentReader
	embedder    *embedder.Client
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(cfg *config.Config, enrollments database.EnrollmentReader, embedClient *embedder.Client) *VerifyHandler {
	return &VerifyHandler{
		config:      cfg,
		enrollments: enrollments,
		embedder:    embedClient,
	}
}

type verifyRequest struct {
	EmbeddingA []float32 `json:"embedding_a"`
	EmbeddingB []float32 `json:"embedding_b"`
	Threshold  *float64  `json:"threshold,omitempty"`
}

type verifyResponse struct {
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Verified   bool    `json:"verified"`
}

// Verify compares two embeddings by cosine similarity.
// POST /api/v1/verify
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	threshold := h.config.GetModelThresholds(h.config.Embedder.Model).Verify
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	result, err := recognize.Verify(recognize.Embedding(req.EmbeddingA), recognize.Embedding(req.EmbeddingB), threshold)
	if err != nil {
		respondRecognizeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verifyResponse{
		Similarity: result.Similarity,
		Threshold:  result.Threshold,
		Verified:   result.Verified,
	})
}

type verifyImageResponse struct {
	VoterID    string  `json:"voter_id"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Verified   bool    `json:"verified"`
}

// VerifyImage verifies an uploaded face image against a voter's enrollments.
// POST /api/v1/verify/image (multipart: image file + voter_id field)
func (h *VerifyHandler) VerifyImage(w http.ResponseWriter, r *http.Request) {
	if h.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "embedding server is not configured")
		return
	}

	imageData, err := readUploadedFile(r, "image", constants.MaxUploadSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image file")
		return
	}

	voterID := r.FormValue("voter_id")
	if voterID == "" {
		respondError(w, http.StatusBadRequest, "voter_id is required")
		return
	}

	query, err := h.embedder.ComputeSingleFaceEmbedding(r.Context(), imageData)
	if err != nil {
		if errors.Is(err, embedder.ErrNoFaceDetected) || errors.Is(err, embedder.ErrMultipleFaces) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("Failed to compute embedding: %v", err)
		respondError(w, http.StatusBadGateway, "embedding server error")
		return
	}

	enrolled, err := h.enrollments.GetByVoter(r.Context(), voterID)
	if err != nil {
		log.Printf("Failed to load enrollments for %s: %v", sanitizeForLog(voterID), err)
		respondError(w, http.StatusInternalServerError, "failed to load enrollments")
		return
	}
	if len(enrolled) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("voter %s is not enrolled", voterID))
		return
	}

	threshold := h.config.GetModelThresholds(h.config.Embedder.Model).Verify

	resp := verifyImageResponse{
		VoterID:    voterID,
		Similarity: -1,
		Threshold:  threshold,
	}
	for i := range enrolled {
		result, err := recognize.Verify(recognize.Embedding(query), recognize.Embedding(enrolled[i].Embedding), threshold)
		if err != nil {
			continue
		}
		if result.Similarity > resp.Similarity {
			resp.Similarity = result.Similarity
		}
		if result.Verified {
			resp.Verified = true
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondRecognizeError maps matcher/verifier errors to HTTP status codes.
func respondRecognizeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recognize.ErrDimensionMismatch),
		errors.Is(err, recognize.ErrDegenerateVector),
		errors.Is(err, recognize.ErrInvalidParameter),
		errors.Is(err, recognize.ErrEmptyGallery):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
