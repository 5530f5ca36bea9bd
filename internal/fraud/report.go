package fraud

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ConstituencyStats summarizes audit outcomes for one voting constituency.
type ConstituencyStats struct {
	Constituency    string            `json:"constituency"`
	TotalVotes      int               `json:"total_votes"`
	SuspiciousVotes int               `json:"suspicious_votes"`
	UniqueVoters    int               `json:"unique_voters"`
	FraudBreakdown  map[FraudType]int `json:"fraud_breakdown"`
}

// AuditReport is the result of classifying a batch of vote records.
type AuditReport struct {
	ReportID        string              `json:"report_id"`
	GeneratedAt     time.Time           `json:"generated_at"`
	TotalVotes      int                 `json:"total_votes"`
	LegitimateVotes int                 `json:"legitimate_votes"`
	SuspiciousVotes int                 `json:"suspicious_votes"`
	UniqueVoters    int                 `json:"unique_voters"`
	FraudRate       float64             `json:"fraud_rate"`
	FraudCounts     map[FraudType]int   `json:"fraud_counts"`
	Constituencies  []ConstituencyStats `json:"constituencies"`
	Votes           []ClassifiedVote    `json:"-"`
}

// BuildReport aggregates classified votes into an audit report. The fraud
// rate is the share of suspicious votes in percent.
func BuildReport(classified []ClassifiedVote) *AuditReport {
	report := &AuditReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		TotalVotes:  len(classified),
		FraudCounts: make(map[FraudType]int),
		Votes:       classified,
	}

	voters := make(map[string]struct{})
	byConstituency := make(map[string]*ConstituencyStats)
	constituencyVoters := make(map[string]map[string]struct{})

	for i := range classified {
		cv := &classified[i]
		voters[cv.VoterID] = struct{}{}
		report.FraudCounts[cv.FraudType]++

		if cv.Suspicious {
			report.SuspiciousVotes++
		} else {
			report.LegitimateVotes++
		}

		stats, ok := byConstituency[cv.VotingConstituency]
		if !ok {
			stats = &ConstituencyStats{
				Constituency:   cv.VotingConstituency,
				FraudBreakdown: make(map[FraudType]int),
			}
			byConstituency[cv.VotingConstituency] = stats
			constituencyVoters[cv.VotingConstituency] = make(map[string]struct{})
		}
		stats.TotalVotes++
		stats.FraudBreakdown[cv.FraudType]++
		constituencyVoters[cv.VotingConstituency][cv.VoterID] = struct{}{}
		if cv.Suspicious {
			stats.SuspiciousVotes++
		}
	}

	report.UniqueVoters = len(voters)
	if report.TotalVotes > 0 {
		report.FraudRate = float64(report.SuspiciousVotes) / float64(report.TotalVotes) * 100
	}

	names := make([]string, 0, len(byConstituency))
	for name := range byConstituency {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := byConstituency[name]
		stats.UniqueVoters = len(constituencyVoters[name])
		report.Constituencies = append(report.Constituencies, *stats)
	}

	return report
}

var reportCSVHeader = []string{
	"voter_id",
	"claimed_voter_id",
	"registered_constituency",
	"voting_constituency",
	"fraud_type",
	"is_suspicious",
	"fraud_reason",
	"similarity",
}

// WriteCSV writes the classified votes of a report as CSV, one row per vote.
func (r *AuditReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(reportCSVHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for i := range r.Votes {
		cv := &r.Votes[i]

		similarity := ""
		if cv.Similarity >= 0 {
			similarity = fmt.Sprintf("%.4f", cv.Similarity)
		}

		record := []string{
			cv.VoterID,
			cv.ClaimedVoterID,
			cv.RegisteredConstituency,
			cv.VotingConstituency,
			string(cv.FraudType),
			fmt.Sprintf("%t", cv.Suspicious),
			cv.Reason,
			similarity,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write report row for %s: %w", cv.VoterID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// WriteJSON writes the report summary as indented JSON.
func (r *AuditReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
