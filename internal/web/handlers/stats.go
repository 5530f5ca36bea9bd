package handlers

import (
	"log"
	"net/http"

	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/database"
)

// StatsHandler reports gallery and vote store statistics.
type StatsHandler struct {
	enrollments database.EnrollmentReader
	votes       database.VoteReader
	config      *config.Config
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(enrollments database.EnrollmentReader, votes database.VoteReader, cfg *config.Config) *StatsHandler {
	return &StatsHandler{
		enrollments: enrollments,
		votes:       votes,
		config:      cfg,
	}
}

type statsResponse struct {
	Enrollments  int    `json:"enrollments"`
	Voters       int    `json:"voters"`
	Votes        int    `json:"votes"`
	Model        string `json:"model"`
	EmbeddingDim int    `json:"embedding_dim"`
	HNSWEnabled  bool   `json:"hnsw_enabled"`
	HNSWCount    int    `json:"hnsw_count"`
}

// Get returns system statistics.
// GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.enrollments.Count(r.Context())
	if err != nil {
		log.Printf("Failed to count enrollments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count enrollments")
		return
	}

	voters, err := h.enrollments.CountVoters(r.Context())
	if err != nil {
		log.Printf("Failed to count voters: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count voters")
		return
	}

	votes, err := h.votes.CountVotes(r.Context())
	if err != nil {
		log.Printf("Failed to count votes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count votes")
		return
	}

	resp := statsResponse{
		Enrollments:  enrollments,
		Voters:       voters,
		Votes:        votes,
		Model:        h.config.Embedder.Model,
		EmbeddingDim: h.config.Embedder.Dim,
	}

	if rebuilder := database.GetEnrollmentHNSWRebuilder(); rebuilder != nil {
		resp.HNSWEnabled = rebuilder.IsHNSWEnabled()
		resp.HNSWCount = rebuilder.HNSWCount()
	}

	respondJSON(w, http.StatusOK, resp)
}
