// Package store persists analysis results into the optional external graph
// database, mirroring accounts and detected rings as nodes so an analyst can
// explore a run's findings with the same Cypher tooling used to explore the
// source transaction graph.
package store

import (
	"context"
	"fmt"

	"github.com/vperiodt/mulehunter/internal/graph"
	"github.com/vperiodt/mulehunter/internal/model"
)

// Store mirrors one analysis run into the graph database backing client.
type Store struct {
	client graph.Client
}

// New instantiates a Store backed by the supplied graph client.
func New(client graph.Client) *Store {
	return &Store{client: client}
}

// SaveAnalysis writes every flagged account and detected ring from result,
// tagged with runID. Account nodes are keyed by account ID and ring nodes by
// ring ID alone, so a later run overwrites the properties (including the run
// ID) of any node an earlier run wrote under the same ID.
func (s *Store) SaveAnalysis(ctx context.Context, runID string, result model.AnalysisResult) error {
	for _, finding := range result.SuspiciousAccounts {
		params := map[string]any{
			"runId":     runID,
			"accountId": finding.AccountID,
			"score":     finding.SuspicionScore,
			"patterns":  finding.DetectedPatterns,
			"reasons":   finding.Reasons,
			"ringId":    finding.RingID,
		}
		if _, err := s.client.ExecuteWrite(ctx, upsertAccountCypher, params); err != nil {
			return fmt.Errorf("persist account %s: %w", finding.AccountID, err)
		}
	}

	for _, ring := range result.FraudRings {
		params := map[string]any{
			"runId":      runID,
			"ringId":     ring.ID,
			"pattern":    string(ring.PatternType),
			"members":    ring.Members,
			"confidence": ring.Confidence,
			"riskScore":  ring.RiskScore,
		}
		if _, err := s.client.ExecuteWrite(ctx, upsertRingCypher, params); err != nil {
			return fmt.Errorf("persist ring %s: %w", ring.ID, err)
		}
	}

	return nil
}

// VerifyConnectivity checks the underlying client can reach the database.
func (s *Store) VerifyConnectivity(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

// Close releases the underlying client's resources.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

const upsertAccountCypher = `
MERGE (a:Account {accountId: $accountId})
SET a.lastRunId = $runId,
    a.suspicionScore = $score,
    a.detectedPatterns = $patterns,
    a.reasons = $reasons
WITH a
OPTIONAL MATCH (r:FraudRing {ringId: $ringId})
FOREACH (_ IN CASE WHEN $ringId = "" OR r IS NULL THEN [] ELSE [1] END |
	MERGE (a)-[m:MEMBER_OF]->(r)
	SET m.runId = $runId
)
RETURN a.accountId AS accountId
`

const upsertRingCypher = `
MERGE (r:FraudRing {ringId: $ringId})
SET r.runId = $runId,
    r.pattern = $pattern,
    r.members = $members,
    r.confidence = $confidence,
    r.riskScore = $riskScore
RETURN r.ringId AS ringId
`
