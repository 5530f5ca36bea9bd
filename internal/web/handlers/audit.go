package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/votersentry/voter-sentry/internal/config"
	"github.com/votersentry/voter-sentry/internal/constants"
	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/fraud"
	"github.com/votersentry/voter-sentry/internal/roll"
)

// AuditHandler runs fraud audits over vote record batches.
type AuditHandler struct {
	config      *config.Config
	enrollments database.EnrollmentReader
	votes       database.VoteWriter
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(cfg *config.Config, enrollments database.EnrollmentReader, votes database.VoteWriter) *AuditHandler {
	return &AuditHandler{
		config:      cfg,
		enrollments: enrollments,
		votes:       votes,
	}
}

type auditJSONRequest struct {
	Votes []database.VoteRecord `json:"votes"`
}

type auditResponse struct {
	Report *fraud.AuditReport     `json:"report"`
	Votes  []fraud.ClassifiedVote `json:"votes"`
}

// Audit classifies a batch of vote records and returns an audit report.
// Accepts either a JSON body {"votes": [...]} or a multipart CSV upload in
// the "file" field. With ?store=true the raw votes are also persisted.
// POST /api/v1/audit
func (h *AuditHandler) Audit(w http.ResponseWriter, r *http.Request) {
	votes, ok := h.parseVotes(w, r)
	if !ok {
		return
	}
	if len(votes) == 0 {
		respondError(w, http.StatusBadRequest, "no vote records provided")
		return
	}

	if store, _ := strconv.ParseBool(r.URL.Query().Get("store")); store {
		if err := h.votes.SaveVotes(r.Context(), votes); err != nil {
			log.Printf("Failed to store votes: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to store votes")
			return
		}
	}

	threshold := h.config.GetModelThresholds(h.config.Embedder.Model).Verify
	auditor := fraud.NewAuditor(h.enrollments, threshold)

	classified, err := auditor.Classify(r.Context(), votes)
	if err != nil {
		log.Printf("Audit failed: %v", err)
		respondError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	report := fraud.BuildReport(classified)
	respondJSON(w, http.StatusOK, auditResponse{
		Report: report,
		Votes:  classified,
	})
}

// parseVotes extracts vote records from the request body, either CSV upload
// or JSON. Writes the error response itself when parsing fails.
func (h *AuditHandler) parseVotes(w http.ResponseWriter, r *http.Request) ([]database.VoteRecord, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		data, err := readUploadedFile(r, "file", constants.MaxUploadSize)
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing vote CSV file")
			return nil, false
		}
		votes, err := roll.ReadVotes(bytes.NewReader(data))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		return votes, true
	}

	var req auditJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return nil, false
	}
	return req.Votes, true
}

// ListVotes returns stored vote records, optionally filtered by constituency.
// GET /api/v1/votes?constituency=north
func (h *AuditHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	var (
		votes []database.VoteRecord
		err   error
	)

	if constituency := r.URL.Query().Get("constituency"); constituency != "" {
		votes, err = h.votes.GetVotesByConstituency(r.Context(), constituency)
	} else {
		votes, err = h.votes.GetVotes(r.Context())
	}
	if err != nil {
		log.Printf("Failed to list votes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list votes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}
