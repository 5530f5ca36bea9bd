package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/embedder"
	"github.com/votersentry/voter-sentry/internal/recognize"
)

// IdentifyHandler handles 1:N face identification requests.
type IdentifyHandler struct {
	config      *config.Config
	enrollments database.EnrollmentReader
	embedder    *embedder.Client
}

// NewIdentifyHandler creates a new identify handler.
func NewIdentifyHandler(cfg *config.Config, enrollments database.EnrollmentReader, embedClient *embedder.Client) *IdentifyHandler {
	return &IdentifyHandler{
		config:      cfg,
		enrollments: enrollments,
		embedder:    embedClient,
	}
}

type identifyRequest struct {
	Embedding []float32 `json:"embedding"`
	K         int       `json:"k,omitempty"`
}

type identifyCandidate struct {
	VoterID      string  `json:"voter_id"`
	Constituency string  `json:"constituency"`
	Distance     float64 `json:"distance"`
}

type identifyResponse struct {
	VoterID    string              `json:"voter_id"`
	Distance   float64             `json:"distance"`
	Votes      int                 `json:"votes"`
	K          int                 `json:"k"`
	Candidates []identifyCandidate `json:"candidates"`
}

// Identify finds the nearest enrolled voters for an embedding and elects a
// label by k-NN majority vote.
// POST /api/v1/identify
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	h.identify(w, r, req.Embedding, req.K)
}

// IdentifyImage identifies an uploaded face image against the enrollment gallery.
// POST /api/v1/identify/image (multipart: image file, optional k field)
func (h *IdentifyHandler) IdentifyImage(w http.ResponseWriter, r *http.Request) {
	if h.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "embedding server is not configured")
		return
	}

	imageData, err := readUploadedFile(r, "image", constants.MaxUploadSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image file")
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

	k := 0
	if v := r.FormValue("k"); v != "" {
		k, err = strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid k")
			return
		}
	}

	h.identify(w, r, query, k)
}

func (h *IdentifyHandler) identify(w http.ResponseWriter, r *http.Request, query []float32, k int) {
	if k == 0 {
		k = constants.DefaultNeighbors
	}
	if k < 0 {
		respondError(w, http.StatusBadRequest, recognize.ErrInvalidParameter.Error())
		return
	}

	// Pre-filter candidates with the vector store, then run the exact k-NN
	// vote over what it returns.
	limit := k * database.HNSWSearchMultiplier
	if limit < constants.DefaultHandlerPageSize {
		limit = constants.DefaultHandlerPageSize
	}
	candidates, err := h.enrollments.FindSimilar(r.Context(), query, limit)
	if err != nil {
		log.Printf("Similarity search failed: %v", err)
		respondError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}
	if len(candidates) == 0 {
		respondError(w, http.StatusNotFound, "no enrollments available")
		return
	}

	gallery := recognize.NewGallery()
	constituencies := make(map[string]string, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		constituencies[c.VoterID] = c.Constituency
		if err := gallery.Add(recognize.Label(c.VoterID), recognize.Embedding(c.Embedding)); err != nil {
			log.Printf("Skipping enrollment %d for voter %s: %v", c.ID, sanitizeForLog(c.VoterID), err)
		}
	}

	if k > gallery.Len() {
		k = gallery.Len()
	}

	match, err := gallery.FindNearest(recognize.Embedding(query), k)
	if err != nil {
		respondRecognizeError(w, err)
		return
	}

	resp := identifyResponse{
		VoterID:  string(match.Label),
		Distance: match.Distance,
		Votes:    match.Votes,
		K:        match.K,
	}

	for i := range candidates {
		c := &candidates[i]
		dist, err := recognize.EuclideanDistance(recognize.Embedding(query), recognize.Embedding(c.Embedding))
		if err != nil {
			continue
		}
		resp.Candidates = append(resp.Candidates, identifyCandidate{
			VoterID:      c.VoterID,
			Constituency: c.Constituency,
			Distance:     dist,
		})
		if len(resp.Candidates) >= k {
			break
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
