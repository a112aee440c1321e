// Package wire defines the fixed external JSON schema for an analysis
// result (spec.md §6) and the conversion from the internal model, shared by
// the HTTP server and the one-shot CLI so both emit identical output.
package wire

import "github.com/vperiodt/mulehunter/internal/model"

type AccountFinding struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   int      `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           *string  `json:"ring_id"`
	Reasons          []string `json:"reasons"`
}

type Ring struct {
	RingID         string   `json:"ring_id"`
	PatternType    string   `json:"pattern_type"`
	MemberAccounts []string `json:"member_accounts"`
	RiskScore      int      `json:"risk_score"`
}

type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64 `json:"processing_time_seconds"`
}

type AnalysisResult struct {
	SuspiciousAccounts []AccountFinding `json:"suspicious_accounts"`
	FraudRings         []Ring           `json:"fraud_rings"`
	Summary            Summary          `json:"summary"`
}

// FromModel converts the pipeline's internal result into the fixed wire
// schema, turning the empty-string "no ring" sentinel into a JSON null.
func FromModel(result model.AnalysisResult) AnalysisResult {
	accounts := make([]AccountFinding, 0, len(result.SuspiciousAccounts))
	for _, f := range result.SuspiciousAccounts {
		var ringID *string
		if f.RingID != "" {
			id := f.RingID
			ringID = &id
		}
		accounts = append(accounts, AccountFinding{
			AccountID:        f.AccountID,
			SuspicionScore:   f.SuspicionScore,
			DetectedPatterns: f.DetectedPatterns,
			RingID:           ringID,
			Reasons:          f.Reasons,
		})
	}

	rings := make([]Ring, 0, len(result.FraudRings))
	for _, r := range result.FraudRings {
		rings = append(rings, Ring{
			RingID:         r.ID,
			PatternType:    string(r.PatternType),
			MemberAccounts: r.Members,
			RiskScore:      r.RiskScore,
		})
	}

	return AnalysisResult{
		SuspiciousAccounts: accounts,
		FraudRings:         rings,
		Summary: Summary{
			TotalAccountsAnalyzed:     result.Summary.TotalAccountsAnalyzed,
			SuspiciousAccountsFlagged: result.Summary.SuspiciousAccountsFlagged,
			FraudRingsDetected:        result.Summary.FraudRingsDetected,
			ProcessingTimeSeconds:     result.Summary.ProcessingTimeSeconds,
		},
	}
}
