// Package graphbuild constructs the read-only transaction graph consumed by
// every detector: forward/reverse adjacency and per-account aggregates.
package graphbuild

import (
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

// Build converts a time-ordered transaction sequence into a Graph in one
// pass. Adjacency lists preserve transaction insertion order, which is what
// gives the detectors deterministic traversal.
func Build(transactions []model.Transaction) *model.Graph {
	g := &model.Graph{
		Forward:      make(map[string][]model.Edge),
		Reverse:      make(map[string][]model.Edge),
		Aggregates:   make(map[string]model.AccountAggregate),
		Transactions: transactions,
	}

	seen := make(map[string]struct{})
	outCounterparties := make(map[string]map[string]struct{})
	inCounterparties := make(map[string]map[string]struct{})

	addNode := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			g.Nodes = append(g.Nodes, id)
		}
	}

	for _, tx := range transactions {
		addNode(tx.Sender)
		addNode(tx.Receiver)

		g.Forward[tx.Sender] = append(g.Forward[tx.Sender], model.Edge{
			TransactionID: tx.ID,
			Counterparty:  tx.Receiver,
			Amount:        tx.Amount,
			Timestamp:     tx.Timestamp,
		})
		g.Reverse[tx.Receiver] = append(g.Reverse[tx.Receiver], model.Edge{
			TransactionID: tx.ID,
			Counterparty:  tx.Sender,
			Amount:        tx.Amount,
			Timestamp:     tx.Timestamp,
		})

		senderAgg := g.Aggregates[tx.Sender]
		senderAgg.OutDegree++
		senderAgg.TotalOutAmount += tx.Amount
		expandSpan(&senderAgg, tx.Timestamp)
		g.Aggregates[tx.Sender] = senderAgg

		receiverAgg := g.Aggregates[tx.Receiver]
		receiverAgg.InDegree++
		receiverAgg.TotalInAmount += tx.Amount
		expandSpan(&receiverAgg, tx.Timestamp)
		g.Aggregates[tx.Receiver] = receiverAgg

		if outCounterparties[tx.Sender] == nil {
			outCounterparties[tx.Sender] = make(map[string]struct{})
		}
		outCounterparties[tx.Sender][tx.Receiver] = struct{}{}

		if inCounterparties[tx.Receiver] == nil {
			inCounterparties[tx.Receiver] = make(map[string]struct{})
		}
		inCounterparties[tx.Receiver][tx.Sender] = struct{}{}
	}

	for account, agg := range g.Aggregates {
		agg.DistinctOutCounterparties = len(outCounterparties[account])
		agg.DistinctInCounterparties = len(inCounterparties[account])
		g.Aggregates[account] = agg
	}

	return g
}

func expandSpan(agg *model.AccountAggregate, ts time.Time) {
	if agg.FirstSeen.IsZero() || ts.Before(agg.FirstSeen) {
		agg.FirstSeen = ts
	}
	if ts.After(agg.LastSeen) {
		agg.LastSeen = ts
	}
}
