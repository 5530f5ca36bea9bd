package handlers

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/votersentry/voter-sentry/internal/database"
)

// VotersHandler exposes the enrollment gallery.
type VotersHandler struct {
	enrollments database.EnrollmentWriter
}

// NewVotersHandler creates a new voters handler.
func NewVotersHandler(enrollments database.EnrollmentWriter) *VotersHandler {
	return &VotersHandler{enrollments: enrollments}
}

type voterSummary struct {
	VoterID      string `json:"voter_id"`
	Constituency string `json:"constituency"`
	VoterName    string `json:"voter_name,omitempty"`
	Enrollments  int    `json:"enrollments"`
}

type enrollmentView struct {
	ID           int64     `json:"id"`
	VoterID      string    `json:"voter_id"`
	Constituency string    `json:"constituency"`
	VoterName    string    `json:"voter_name,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	Model        string    `json:"model"`
	Dim          int       `json:"dim"`
	CreatedAt    time.Time `json:"created_at"`
}

// List returns enrolled voters, optionally filtered by constituency.
// GET /api/v1/voters?constituency=north
func (h *VotersHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		enrolled []database.StoredEnrollment
		err      error
	)

	if constituency := r.URL.Query().Get("constituency"); constituency != "" {
		enrolled, err = h.enrollments.GetByConstituency(r.Context(), constituency)
	} else {
		enrolled, err = h.enrollments.GetAll(r.Context())
	}
	if err != nil {
		log.Printf("Failed to list enrollments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list enrollments")
		return
	}

	byVoter := make(map[string]*voterSummary)
	for i := range enrolled {
		e := &enrolled[i]
		s, ok := byVoter[e.VoterID]
		if !ok {
			s = &voterSummary{
				VoterID:      e.VoterID,
				Constituency: e.Constituency,
				VoterName:    e.VoterName,
			}
			byVoter[e.VoterID] = s
		}
		s.Enrollments++
	}

	voters := make([]voterSummary, 0, len(byVoter))
	for _, s := range byVoter {
		voters = append(voters, *s)
	}
	sort.Slice(voters, func(i, j int) bool {
		return voters[i].VoterID < voters[j].VoterID
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"voters": voters,
		"count":  len(voters),
	})
}

// Get returns all enrollments for a voter.
// GET /api/v1/voters/{voterID}
func (h *VotersHandler) Get(w http.ResponseWriter, r *http.Request) {
	voterID := chi.URLParam(r, "voterID")

	enrolled, err := h.enrollments.GetByVoter(r.Context(), voterID)
	if err != nil {
		log.Printf("Failed to get enrollments for %s: %v", sanitizeForLog(voterID), err)
		respondError(w, http.StatusInternalServerError, "failed to get enrollments")
		return
	}
	if len(enrolled) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("voter %s is not enrolled", voterID))
		return
	}

	views := make([]enrollmentView, 0, len(enrolled))
	for i := range enrolled {
		e := &enrolled[i]
		views = append(views, enrollmentView{
			ID:           e.ID,
			VoterID:      e.VoterID,
			Constituency: e.Constituency,
			VoterName:    e.VoterName,
			ImagePath:    e.ImagePath,
			Model:        e.Model,
			Dim:          e.Dim,
			CreatedAt:    e.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"voter_id":    voterID,
		"enrollments": views,
	})
}

// Delete removes all enrollments for a voter.
// DELETE /api/v1/voters/{voterID}
func (h *VotersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	voterID := chi.URLParam(r, "voterID")

	ids, err := h.enrollments.DeleteByVoter(r.Context(), voterID)
	if err != nil {
		log.Printf("Failed to delete enrollments for %s: %v", sanitizeForLog(voterID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete enrollments")
		return
	}
	if len(ids) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("voter %s is not enrolled", voterID))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"voter_id": voterID,
		"deleted":  len(ids),
	})
}
