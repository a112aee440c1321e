// Package smurf flags hub accounts that interact with an unusually large
// number of distinct counterparties within a short sliding window.
package smurf

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

// Config carries the thresholds from spec.md §6/§4.4.
type Config struct {
	MinCounterparties int
	Window            time.Duration
}

type txView struct {
	transactionID string
	counterparty  string
	amount        float64
	timestamp     time.Time
}

// Detect scans every account for its best 72-hour window of distinct
// counterparty activity, emitting one Ring per hub crossing the threshold.
func Detect(ctx context.Context, g *model.Graph, cfg Config) []model.Ring {
	accounts := make([]string, len(g.Nodes))
	copy(accounts, g.Nodes)
	sort.Strings(accounts)

	var rings []model.Ring
	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}
		if ring, ok := detectHub(g, cfg, account); ok {
			rings = append(rings, ring)
		}
	}
	return rings
}

func detectHub(g *model.Graph, cfg Config, account string) (model.Ring, bool) {
	txs := mergedTxs(g, account)
	if len(txs) < cfg.MinCounterparties {
		return model.Ring{}, false
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].timestamp.Before(txs[j].timestamp) })

	window, counterparties, ok := bestWindow(txs, cfg)
	if !ok {
		return model.Ring{}, false
	}

	firstSeen := make(map[string]time.Time, len(counterparties))
	for _, t := range window {
		if _, seen := firstSeen[t.counterparty]; !seen {
			firstSeen[t.counterparty] = t.timestamp
		}
	}
	ordered := make([]string, 0, len(counterparties))
	for cp := range counterparties {
		ordered = append(ordered, cp)
	}
	sort.Slice(ordered, func(i, j int) bool {
		ti, tj := firstSeen[ordered[i]], firstSeen[ordered[j]]
		if ti.Equal(tj) {
			return ordered[i] < ordered[j]
		}
		return ti.Before(tj)
	})

	diversity := float64(len(counterparties)) / float64(len(window))
	cv := coefficientOfVariation(window)

	members := append([]string{account}, ordered...)
	edgeIDs := make([]string, 0, len(window))
	for _, t := range window {
		edgeIDs = append(edgeIDs, t.transactionID)
	}

	ring := model.Ring{
		PatternType: model.PatternSmurfing,
		Members:     members,
		EdgeIDs:     edgeIDs,
		Metadata: model.RingMetadata{
			TimeSpan:        windowSpan(window),
			DiversityRatio:  diversity,
			AmountCV:        cv,
			PeakDistinct:    len(counterparties),
			TotalTxInWindow: len(window),
		},
	}
	return ring, true
}

// mergedTxs unions incoming and outgoing edges touching account, viewed
// from account's perspective (counterparty is always the far end).
func mergedTxs(g *model.Graph, account string) []txView {
	out := g.Forward[account]
	in := g.Reverse[account]
	txs := make([]txView, 0, len(out)+len(in))
	for _, e := range out {
		txs = append(txs, txView{transactionID: e.TransactionID, counterparty: e.Counterparty, amount: e.Amount, timestamp: e.Timestamp})
	}
	for _, e := range in {
		txs = append(txs, txView{transactionID: e.TransactionID, counterparty: e.Counterparty, amount: e.Amount, timestamp: e.Timestamp})
	}
	return txs
}

// bestWindow finds the 72-hour window maximizing distinct counterparties.
func bestWindow(sorted []txView, cfg Config) ([]txView, map[string]struct{}, bool) {
	var bestTxs []txView
	bestSet := map[string]struct{}{}

	for i := range sorted {
		end := sorted[i].timestamp.Add(cfg.Window)
		set := make(map[string]struct{})
		var current []txView
		for j := i; j < len(sorted); j++ {
			if sorted[j].timestamp.After(end) {
				break
			}
			current = append(current, sorted[j])
			set[sorted[j].counterparty] = struct{}{}
		}
		if len(set) >= cfg.MinCounterparties && len(set) > len(bestSet) {
			bestTxs = current
			bestSet = set
		}
	}

	if bestTxs == nil {
		return nil, nil, false
	}
	return bestTxs, bestSet, true
}

// windowSpan is the time between the window's earliest and latest
// transaction, feeding the confidence engine's temporal score the same way
// it does for cycle and shell rings.
func windowSpan(txs []txView) time.Duration {
	if len(txs) == 0 {
		return 0
	}
	min, max := txs[0].timestamp, txs[0].timestamp
	for _, t := range txs {
		if t.timestamp.Before(min) {
			min = t.timestamp
		}
		if t.timestamp.After(max) {
			max = t.timestamp
		}
	}
	return max.Sub(min)
}

func coefficientOfVariation(txs []txView) float64 {
	if len(txs) < 2 {
		return 0
	}
	var sum float64
	for _, t := range txs {
		sum += t.amount
	}
	mean := sum / float64(len(txs))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, t := range txs {
		d := t.amount - mean
		variance += d * d
	}
	variance /= float64(len(txs))
	return math.Sqrt(variance) / mean
}
