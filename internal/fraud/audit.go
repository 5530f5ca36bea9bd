// Package fraud classifies vote records against the enrollment gallery and
// builds audit reports.
package fraud

import (
	"context"
	"fmt"

	"github.com/votersentry/voter-sentry/internal/database"
	"github.com/votersentry/voter-sentry/internal/recognize"
)

// FraudType labels the kind of irregularity detected for a vote.
type FraudType string

const (
	FraudLegitimate        FraudType = "legitimate"
	FraudIdentityTheft     FraudType = "same_constituency_identity_theft"
	FraudCrossConstituency FraudType = "cross_constituency_voting"
	FraudDoubleVoting      FraudType = "double_voting"
)

// ClassifiedVote is a vote record with its audit outcome.
type ClassifiedVote struct {
	database.VoteRecord
	FraudType  FraudType
	Suspicious bool
	Reason     string
	// Similarity is the cosine similarity between the vote's face capture and
	// the claimed voter's enrollment. Negative when no face check was possible.
	Similarity float64
}

// Auditor classifies vote records. Face checks compare a vote's capture
// against the claimed voter's enrollments.
type Auditor struct {
	enrollments     database.EnrollmentReader
	verifyThreshold float64
}

// NewAuditor creates an auditor using the given enrollment store and cosine
// similarity threshold for face verification.
func NewAuditor(enrollments database.EnrollmentReader, verifyThreshold float64) *Auditor {
	return &Auditor{
		enrollments:     enrollments,
		verifyThreshold: verifyThreshold,
	}
}

// Classify audits a batch of vote records. Each vote gets exactly one fraud
// type; when several irregularities apply the most specific wins:
// identity theft, then cross-constituency voting, then double voting.
func (a *Auditor) Classify(ctx context.Context, votes []database.VoteRecord) ([]ClassifiedVote, error) {
	voteCounts := make(map[string]int, len(votes))
	for i := range votes {
		voteCounts[votes[i].VoterID]++
	}

	classified := make([]ClassifiedVote, 0, len(votes))
	for i := range votes {
		v := votes[i]

		cv := ClassifiedVote{
			VoteRecord: v,
			FraudType:  FraudLegitimate,
			Similarity: -1,
		}

		identityStolen := v.ClaimedVoterID != "" && v.ClaimedVoterID != v.VoterID
		reason := ""

		// The face check runs against the claimed identity; when the vote
		// carries no explicit claim the presented identity is the claim.
		claimed := v.ClaimedVoterID
		if claimed == "" {
			claimed = v.VoterID
		}

		if !identityStolen && len(v.Embedding) > 0 {
			verified, similarity, err := a.verifyFace(ctx, claimed, v.Embedding)
			if err != nil {
				return nil, fmt.Errorf("verify vote by %s: %w", v.VoterID, err)
			}
			if similarity >= 0 {
				cv.Similarity = similarity
			}
			if !verified && similarity >= 0 {
				identityStolen = true
				reason = fmt.Sprintf("Face does not match enrollment for %s (similarity %.3f)", claimed, similarity)
			}
		}

		switch {
		case identityStolen:
			cv.FraudType = FraudIdentityTheft
			cv.Suspicious = true
			if reason == "" {
				reason = fmt.Sprintf("Identity theft: Claims to be %s", v.ClaimedVoterID)
			}
			cv.Reason = reason
		case v.RegisteredConstituency != v.VotingConstituency:
			cv.FraudType = FraudCrossConstituency
			cv.Suspicious = true
			cv.Reason = fmt.Sprintf("Voting in wrong constituency: Registered in %s, voting in %s",
				v.RegisteredConstituency, v.VotingConstituency)
		case voteCounts[v.VoterID] > 1:
			cv.FraudType = FraudDoubleVoting
			cv.Suspicious = true
			cv.Reason = "Multiple voting attempts detected"
		default:
			cv.Reason = "Legitimate"
		}

		classified = append(classified, cv)
	}

	return classified, nil
}

// verifyFace compares a vote capture against the claimed voter's enrollments.
// Returns verified=false with similarity -1 when the claimed voter has no
// usable enrollment, so callers can tell "no check" from "check failed".
func (a *Auditor) verifyFace(ctx context.Context, claimedVoterID string, embedding []float32) (bool, float64, error) {
	enrolled, err := a.enrollments.GetByVoter(ctx, claimedVoterID)
	if err != nil {
		return false, -1, fmt.Errorf("get enrollments for %s: %w", claimedVoterID, err)
	}
	if len(enrolled) == 0 {
		return false, -1, nil
	}

	// A voter may have several enrollment images; the best match decides.
	best := -1.0
	for i := range enrolled {
		result, err := recognize.Verify(recognize.Embedding(embedding), recognize.Embedding(enrolled[i].Embedding), a.verifyThreshold)
		if err != nil {
			// Degenerate or mismatched enrollment vectors are skipped, not fatal.
			continue
		}
		if result.Similarity > best {
			best = result.Similarity
		}
		if result.Verified {
			return true, result.Similarity, nil
		}
	}
	return false, best, nil
}
