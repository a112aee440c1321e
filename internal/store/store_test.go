package store

import (
	"context"
	"errors"
	"testing"

	"github.com/vperiodt/mulehunter/internal/graph"
	"github.com/vperiodt/mulehunter/internal/model"
)

func sampleResult() model.AnalysisResult {
	return model.AnalysisResult{
		SuspiciousAccounts: []model.AccountFinding{
			{AccountID: "A", SuspicionScore: 80, DetectedPatterns: []string{"cycle"}, RingID: "RING_CYC_0001", Reasons: []string{"participates in a directed transaction cycle"}},
			{AccountID: "B", SuspicionScore: 55, DetectedPatterns: []string{"cycle"}, RingID: "RING_CYC_0001", Reasons: []string{"participates in a directed transaction cycle"}},
		},
		FraudRings: []model.Ring{
			{ID: "RING_CYC_0001", PatternType: model.PatternCycle, Members: []string{"A", "B"}, Confidence: 0.9, RiskScore: 70},
		},
	}
}

func TestSaveAnalysis_WritesAccountsAndRings(t *testing.T) {
	client := graph.NewMemoryClient()
	s := New(client)

	if err := s.SaveAnalysis(context.Background(), "run-1", sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := client.WriteCalls()
	if len(writes) != 3 {
		t.Fatalf("expected 3 writes (2 accounts + 1 ring), got %d", len(writes))
	}
	if writes[0].Params["accountId"] != "A" || writes[0].Params["runId"] != "run-1" {
		t.Errorf("unexpected first write params: %+v", writes[0].Params)
	}
	if writes[2].Params["ringId"] != "RING_CYC_0001" {
		t.Errorf("expected ring write last, got %+v", writes[2].Params)
	}
}

func TestSaveAnalysis_PropagatesClientError(t *testing.T) {
	client := graph.NewMemoryClient().WithError(errors.New("write failed"))
	s := New(client)

	err := s.SaveAnalysis(context.Background(), "run-1", sampleResult())
	if err == nil {
		t.Fatal("expected an error when the underlying client fails")
	}
}

func TestSaveAnalysis_AccountWithNoRingUsesEmptyRingID(t *testing.T) {
	client := graph.NewMemoryClient()
	s := New(client)

	result := model.AnalysisResult{
		SuspiciousAccounts: []model.AccountFinding{
			{AccountID: "SOLO", SuspicionScore: 30, DetectedPatterns: nil, RingID: "", Reasons: []string{"aggregate suspicion score exceeds the flag threshold"}},
		},
	}
	if err := s.SaveAnalysis(context.Background(), "run-2", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := client.WriteCalls()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(writes))
	}
	if writes[0].Params["ringId"] != "" {
		t.Errorf("expected empty ring id sentinel, got %v", writes[0].Params["ringId"])
	}
}

func TestVerifyConnectivityAndClose_DelegateToClient(t *testing.T) {
	client := graph.NewMemoryClient().WithConnectivityError(errors.New("unreachable"))
	s := New(client)

	if err := s.VerifyConnectivity(context.Background()); err == nil {
		t.Fatal("expected connectivity error to propagate")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error from Close: %v", err)
	}
}
