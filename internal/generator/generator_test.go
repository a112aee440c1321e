package generator

import (
	"context"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate_PlantsRequestedRingCounts(t *testing.T) {
	cfg := Config{
		NumAccounts:            50,
		BackgroundTransactions: 100,
		NumCycles:              2,
		NumSmurfHubs:           1,
		NumShellChains:         2,
		Seed:                   7,
	}
	g := New(cfg)

	batch, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Planted) != cfg.NumCycles+cfg.NumSmurfHubs+cfg.NumShellChains {
		t.Fatalf("expected %d planted rings, got %d", cfg.NumCycles+cfg.NumSmurfHubs+cfg.NumShellChains, len(batch.Planted))
	}
	if len(batch.Records) <= cfg.BackgroundTransactions {
		t.Errorf("expected planted transactions on top of the background, got %d records", len(batch.Records))
	}

	ids := make(map[string]bool, len(batch.Records))
	for _, r := range batch.Records {
		if ids[r.TransactionID] {
			t.Fatalf("duplicate transaction id %s", r.TransactionID)
		}
		ids[r.TransactionID] = true
	}
}

func TestGenerateCycle_StaysWithinRatioAndLengthBounds(t *testing.T) {
	g := New(Config{Seed: 3})

	for i := 0; i < 20; i++ {
		records, ring := g.generateCycle(testNow, i)
		if len(ring.Members) < 3 || len(ring.Members) > 5 {
			t.Fatalf("cycle length out of bounds: %d", len(ring.Members))
		}
		if len(records) != len(ring.Members) {
			t.Fatalf("expected one record per hop, got %d records for %d members", len(records), len(ring.Members))
		}
		min, max := records[0].Amount, records[0].Amount
		for _, r := range records {
			if r.Amount < min {
				min = r.Amount
			}
			if r.Amount > max {
				max = r.Amount
			}
		}
		if min <= 0 || max/min > 1.25+1e-9 {
			t.Errorf("cycle amount ratio exceeded cap: min=%f max=%f", min, max)
		}
	}
}

func TestGenerateShellChain_IntermediatesFormASingleForwardingLine(t *testing.T) {
	g := New(Config{Seed: 11})

	records, ring := g.generateShellChain(testNow, 0)
	if len(ring.Members) < 3 || len(ring.Members) > 8 {
		t.Fatalf("shell chain length out of bounds: %d", len(ring.Members))
	}
	for i, r := range records {
		if r.SenderID != ring.Members[i] || r.ReceiverID != ring.Members[i+1] {
			t.Fatalf("hop %d does not follow the chain order: %+v", i, r)
		}
		if r.Amount < 100 {
			t.Errorf("hop %d amount %f below the shell minimum of 100", i, r.Amount)
		}
	}
}
