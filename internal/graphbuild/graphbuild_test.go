package graphbuild

import (
	"testing"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

func txAt(base time.Time, offset time.Duration, id, sender, receiver string, amount float64) model.Transaction {
	return model.Transaction{ID: id, Sender: sender, Receiver: receiver, Amount: amount, Timestamp: base.Add(offset)}
}

func TestBuild_NodesInFirstAppearanceOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "C", "A", 100),
		txAt(base, time.Hour, "TX2", "A", "B", 100),
	}
	g := Build(txs)
	want := []string{"C", "A", "B"}
	if len(g.Nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(g.Nodes))
	}
	for i, n := range want {
		if g.Nodes[i] != n {
			t.Errorf("node %d: expected %s, got %s", i, n, g.Nodes[i])
		}
	}
}

func TestBuild_DegreeAndAmountAggregatesAccumulate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "A", "C", 50),
		txAt(base, 2*time.Hour, "TX3", "D", "A", 30),
	}
	g := Build(txs)
	agg := g.Aggregates["A"]
	if agg.OutDegree != 2 || agg.InDegree != 1 {
		t.Fatalf("expected A to have out-degree 2, in-degree 1, got %+v", agg)
	}
	if agg.TotalOutAmount != 150 || agg.TotalInAmount != 30 {
		t.Errorf("expected out=150 in=30, got out=%f in=%f", agg.TotalOutAmount, agg.TotalInAmount)
	}
	if agg.TotalDegree() != 3 {
		t.Errorf("expected total degree 3, got %d", agg.TotalDegree())
	}
	if agg.DistinctOutCounterparties != 2 {
		t.Errorf("expected 2 distinct out counterparties, got %d", agg.DistinctOutCounterparties)
	}
}

func TestBuild_DistinctCounterpartiesDedupeRepeatedPairs(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "A", "B", 200),
		txAt(base, 2*time.Hour, "TX3", "A", "B", 300),
	}
	g := Build(txs)
	agg := g.Aggregates["A"]
	if agg.OutDegree != 3 {
		t.Fatalf("expected out-degree 3 for 3 transactions, got %d", agg.OutDegree)
	}
	if agg.DistinctOutCounterparties != 1 {
		t.Errorf("expected exactly 1 distinct counterparty despite 3 transactions, got %d", agg.DistinctOutCounterparties)
	}
}

func TestBuild_FirstSeenAndLastSeenTrackFullSpan(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 2*time.Hour, "TX2", "A", "B", 100),
		txAt(base, 0, "TX1", "A", "C", 100),
		txAt(base, 5*time.Hour, "TX3", "A", "D", 100),
	}
	g := Build(txs)
	agg := g.Aggregates["A"]
	if !agg.FirstSeen.Equal(base) {
		t.Errorf("expected FirstSeen to be the earliest timestamp regardless of insertion order, got %v", agg.FirstSeen)
	}
	if !agg.LastSeen.Equal(base.Add(5 * time.Hour)) {
		t.Errorf("expected LastSeen to be the latest timestamp, got %v", agg.LastSeen)
	}
}

func TestBuild_ForwardAndReverseAdjacencyAreMirrored(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
	}
	g := Build(txs)
	if len(g.Forward["A"]) != 1 || g.Forward["A"][0].Counterparty != "B" {
		t.Fatalf("expected A's forward edge to point at B, got %+v", g.Forward["A"])
	}
	if len(g.Reverse["B"]) != 1 || g.Reverse["B"][0].Counterparty != "A" {
		t.Fatalf("expected B's reverse edge to point at A, got %+v", g.Reverse["B"])
	}
}

func TestBuild_NeighborsUnionsBothDirections(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []model.Transaction{
		txAt(base, 0, "TX1", "A", "B", 100),
		txAt(base, time.Hour, "TX2", "C", "A", 100),
	}
	g := Build(txs)
	neighbors := g.Neighbors("A")
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors (B and C), got %d: %v", len(neighbors), neighbors)
	}
	if _, ok := neighbors["B"]; !ok {
		t.Error("expected B in A's neighbor set")
	}
	if _, ok := neighbors["C"]; !ok {
		t.Error("expected C in A's neighbor set")
	}
}
