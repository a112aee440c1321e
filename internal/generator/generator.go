// Package generator produces synthetic transaction batches for exercising
// the detection pipeline: a background of ordinary peer-to-peer transfers
// with a configurable number of cycle, smurfing, and shell-chain rings
// planted inside it.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Record is one synthetic transaction row, shaped to match the ingest CSV
// schema exactly (transaction_id, sender_id, receiver_id, amount, timestamp).
type Record struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        float64
	Timestamp     time.Time
}

// Batch is a generated collection of transaction rows plus a summary of the
// ring patterns planted inside it, useful for eyeballing detector recall.
type Batch struct {
	Records []Record
	Planted []PlantedRing
}

// PlantedRing describes one pattern the generator deliberately embedded.
type PlantedRing struct {
	PatternType string
	Members     []string
}

// Generator produces synthetic transaction batches.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	txn  int
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumAccounts <= 0 {
		cfg.NumAccounts = DefaultConfig().NumAccounts
	}
	if cfg.BackgroundTransactions <= 0 {
		cfg.BackgroundTransactions = DefaultConfig().BackgroundTransactions
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesizes a background population of ordinary transactions plus
// the configured number of cycle, smurfing, and shell-chain rings. It
// respects context cancellation between pattern batches.
func (g *Generator) Generate(ctx context.Context) (Batch, error) {
	now := time.Now().UTC()
	var batch Batch

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	batch.Records = append(batch.Records, g.generateBackground(now)...)

	for i := 0; i < g.cfg.NumCycles; i++ {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		records, ring := g.generateCycle(now, i)
		batch.Records = append(batch.Records, records...)
		batch.Planted = append(batch.Planted, ring)
	}

	for i := 0; i < g.cfg.NumSmurfHubs; i++ {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		records, ring := g.generateSmurf(now, i)
		batch.Records = append(batch.Records, records...)
		batch.Planted = append(batch.Planted, ring)
	}

	for i := 0; i < g.cfg.NumShellChains; i++ {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		records, ring := g.generateShellChain(now, i)
		batch.Records = append(batch.Records, records...)
		batch.Planted = append(batch.Planted, ring)
	}

	g.rand.Shuffle(len(batch.Records), func(i, j int) {
		batch.Records[i], batch.Records[j] = batch.Records[j], batch.Records[i]
	})

	return batch, nil
}

// generateBackground fills in an innocent population trading with each other
// at random, spread across the last 60 days, well outside any detector's
// 72-hour window discipline.
func (g *Generator) generateBackground(now time.Time) []Record {
	accounts := make([]string, g.cfg.NumAccounts)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("ACC-%06d", i+1)
	}

	records := make([]Record, 0, g.cfg.BackgroundTransactions)
	for i := 0; i < g.cfg.BackgroundTransactions; i++ {
		senderIdx := g.rand.Intn(len(accounts))
		receiverIdx := g.rand.Intn(len(accounts))
		if senderIdx == receiverIdx {
			receiverIdx = (receiverIdx + 1) % len(accounts)
		}
		timestamp := now.Add(-time.Duration(g.rand.Intn(60*24)) * time.Hour)
		records = append(records, Record{
			TransactionID: g.nextTxID(),
			SenderID:      accounts[senderIdx],
			ReceiverID:    accounts[receiverIdx],
			Amount:        roundCents(20 + g.rand.Float64()*2000),
			Timestamp:     timestamp,
		})
	}
	return records
}

// generateCycle plants a closed directed walk of length 3-5 with the amount
// ratio held under 1.25 and the whole loop closing within 72 hours, matching
// the CycleDetector's admission window.
func (g *Generator) generateCycle(now time.Time, idx int) ([]Record, PlantedRing) {
	length := 3 + g.rand.Intn(3) // 3..5
	members := make([]string, length)
	for i := range members {
		members[i] = fmt.Sprintf("CYC-%02d-%02d", idx, i)
	}

	start := now.Add(-time.Duration(g.rand.Intn(30*24)) * time.Hour)
	base := 500 + g.rand.Float64()*4000

	records := make([]Record, 0, length)
	ts := start
	amount := base
	runMin, runMax := base, base
	for i := 0; i < length; i++ {
		sender := members[i]
		receiver := members[(i+1)%length]
		// Clamp against the running min/max seen so far, not just the first
		// hop's amount, so the ratio across the whole loop never exceeds the
		// detector's cap even after several hops of compounding drift.
		drift := 1 + (g.rand.Float64()*0.2 - 0.1)
		amount = clampToRunningRatio(&runMin, &runMax, amount*drift, 1.25)
		ts = ts.Add(time.Duration(5+g.rand.Intn(180)) * time.Minute)

		records = append(records, Record{
			TransactionID: g.nextTxID(),
			SenderID:      sender,
			ReceiverID:    receiver,
			Amount:        roundCents(amount),
			Timestamp:     ts,
		})
	}

	return records, PlantedRing{PatternType: "cycle", Members: members}
}

// generateSmurf plants a hub that fans out to well above the 10-counterparty
// emission threshold inside a single 72-hour window.
func (g *Generator) generateSmurf(now time.Time, idx int) ([]Record, PlantedRing) {
	hub := fmt.Sprintf("SMF-%02d-HUB", idx)
	counterpartyCount := 14 + g.rand.Intn(6) // comfortably clears the peak >= 10 threshold

	window := now.Add(-time.Duration(g.rand.Intn(30*24)) * time.Hour)
	members := make([]string, 0, counterpartyCount+1)
	members = append(members, hub)

	records := make([]Record, 0, counterpartyCount)
	for i := 0; i < counterpartyCount; i++ {
		counterparty := fmt.Sprintf("SMF-%02d-C%03d", idx, i)
		members = append(members, counterparty)
		ts := window.Add(time.Duration(g.rand.Intn(71*60)) * time.Minute)
		records = append(records, Record{
			TransactionID: g.nextTxID(),
			SenderID:      hub,
			ReceiverID:    counterparty,
			Amount:        roundCents(200 + g.rand.Float64()*300), // low variance keeps CV dampening mild
			Timestamp:     ts,
		})
	}

	return records, PlantedRing{PatternType: "smurfing", Members: members}
}

// generateShellChain plants a layered pass-through chain of 3-8 vertices
// where every intermediate forwards to exactly one downstream vertex,
// keeping in_degree+out_degree at 2 as required by the corridor constraint.
func (g *Generator) generateShellChain(now time.Time, idx int) ([]Record, PlantedRing) {
	length := 3 + g.rand.Intn(6) // 3..8
	members := make([]string, length)
	for i := range members {
		members[i] = fmt.Sprintf("SHL-%02d-%02d", idx, i)
	}

	start := now.Add(-time.Duration(g.rand.Intn(30*24)) * time.Hour)
	amount := 150 + g.rand.Float64()*300

	records := make([]Record, 0, length-1)
	ts := start
	for i := 0; i < length-1; i++ {
		// Amount decays 2-10% hop over hop, a fee-skimming shell chain.
		// clampRatio bounds each hop against the previous one; over at most
		// 7 hops the decay keeps the chain's max/min under 2, inside the
		// 3.0 ratio cap.
		amount = clampRatio(amount, amount*(0.9+g.rand.Float64()*0.08), 3.0)
		if amount < 100 {
			amount = 100
		}
		ts = ts.Add(time.Duration(10+g.rand.Intn(240)) * time.Minute)
		records = append(records, Record{
			TransactionID: g.nextTxID(),
			SenderID:      members[i],
			ReceiverID:    members[i+1],
			Amount:        roundCents(amount),
			Timestamp:     ts,
		})
	}

	return records, PlantedRing{PatternType: "shell", Members: members}
}

func (g *Generator) nextTxID() string {
	g.txn++
	return fmt.Sprintf("TX-%07d", g.txn)
}

// clampRatio keeps candidate within [base/ratioCap, base*ratioCap] of base.
func clampRatio(base, candidate, ratioCap float64) float64 {
	if candidate > base*ratioCap {
		return base * ratioCap
	}
	if candidate < base/ratioCap {
		return base / ratioCap
	}
	return candidate
}

// clampToRunningRatio clamps candidate against the min/max seen so far in a
// chain and updates them, guaranteeing max/min across every value returned
// never exceeds ratioCap regardless of how many hops compound.
func clampToRunningRatio(runMin, runMax *float64, candidate, ratioCap float64) float64 {
	if candidate > *runMin*ratioCap {
		candidate = *runMin * ratioCap
	}
	if candidate < *runMax/ratioCap {
		candidate = *runMax / ratioCap
	}
	if candidate < *runMin {
		*runMin = candidate
	}
	if candidate > *runMax {
		*runMax = candidate
	}
	return candidate
}

func roundCents(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
