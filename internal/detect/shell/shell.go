// Package shell finds layered pass-through chains: a source feeding a
// narrow corridor of low-degree intermediaries that ends at a sink.
package shell

import (
	"context"
	"sort"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

// Config carries the thresholds from spec.md §6/§4.5.
type Config struct {
	MinLen              int
	MaxLen              int
	IntermediateDegMin  int
	IntermediateDegMax  int
	AmountRatioCap      float64
	MinAmount           float64
	TimeSpanLimit       time.Duration
	TimestampSlack      time.Duration
}

type step struct {
	vertex        string
	transactionID string
	amount        float64
	timestamp     time.Time
}

// Detect runs a depth-limited DFS from every account with at least one
// outgoing edge, extending along forward edges while every already-fixed
// intermediate satisfies the degree corridor, and emits one Ring per
// canonically-distinct chain.
func Detect(ctx context.Context, g *model.Graph, cfg Config) []model.Ring {
	starts := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if len(g.Forward[n]) > 0 {
			starts = append(starts, n)
		}
	}
	sort.Strings(starts)

	d := &detector{graph: g, cfg: cfg, seen: make(map[string]bool), bestRatio: make(map[string]float64)}
	for _, start := range starts {
		if ctx.Err() != nil {
			break
		}
		d.path = []step{{vertex: start}}
		d.dfs()
	}

	rings := make([]model.Ring, 0, len(d.results))
	rings = append(rings, d.results...)
	sort.Slice(rings, func(i, j int) bool {
		return sequenceKey(rings[i].Members) < sequenceKey(rings[j].Members)
	})
	return rings
}

type detector struct {
	graph     *model.Graph
	cfg       Config
	path      []step
	seen      map[string]bool
	bestRatio map[string]float64
	results   []model.Ring
}

func (d *detector) dfs() {
	depth := len(d.path)
	current := d.path[depth-1].vertex

	if depth >= d.cfg.MinLen {
		d.tryAdmit()
	}
	if depth >= d.cfg.MaxLen {
		return
	}

	for _, e := range d.graph.Forward[current] {
		if depth >= 2 && e.Timestamp.Before(d.path[depth-1].timestamp.Add(-d.cfg.TimestampSlack)) {
			continue
		}
		if containsVertex(d.path, e.Counterparty) {
			continue
		}
		if e.Amount < d.cfg.MinAmount {
			continue
		}

		// The current tail becomes a fixed intermediate once the chain
		// extends past it, so it must sit inside the degree corridor; the
		// source (index 0) is exempt.
		if depth > 1 {
			agg, ok := d.graph.Aggregates[current]
			if !ok || agg.TotalDegree() < d.cfg.IntermediateDegMin || agg.TotalDegree() > d.cfg.IntermediateDegMax {
				continue
			}
		}

		candidate := append(append([]step{}, d.path...), step{
			vertex:        e.Counterparty,
			transactionID: e.TransactionID,
			amount:        e.Amount,
			timestamp:     e.Timestamp,
		})
		if timeSpan(candidate) > d.cfg.TimeSpanLimit {
			continue
		}
		if amountRatio(candidate) > d.cfg.AmountRatioCap {
			continue
		}

		d.path = append(d.path, step{
			vertex:        e.Counterparty,
			transactionID: e.TransactionID,
			amount:        e.Amount,
			timestamp:     e.Timestamp,
		})
		d.dfs()
		d.path = d.path[:len(d.path)-1]
	}
}

func (d *detector) tryAdmit() {
	members := make([]string, len(d.path))
	for i, s := range d.path {
		members[i] = s.vertex
	}
	key := sequenceKey(members)

	ratio := amountRatio(d.path)
	if ratio > d.cfg.AmountRatioCap {
		return
	}
	if prev, ok := d.bestRatio[key]; ok && ratio >= prev {
		return
	}
	d.bestRatio[key] = ratio

	edgeIDs := make([]string, 0, len(d.path)-1)
	for _, s := range d.path[1:] {
		edgeIDs = append(edgeIDs, s.transactionID)
	}

	ring := model.Ring{
		PatternType: model.PatternShell,
		Members:     members,
		EdgeIDs:     edgeIDs,
		Metadata: model.RingMetadata{
			TimeSpan:       timeSpan(d.path),
			AmountRatio:    ratio,
			TightnessScore: tightness(d.graph, members),
		},
	}
	if d.seen[key] {
		for i, r := range d.results {
			if sequenceKey(r.Members) == key {
				d.results[i] = ring
				return
			}
		}
	}
	d.seen[key] = true
	d.results = append(d.results, ring)
}

func tightness(g *model.Graph, members []string) float64 {
	intermediates := members
	if len(members) > 2 {
		intermediates = members[1 : len(members)-1]
	} else {
		return 1.0
	}
	if len(intermediates) == 0 {
		return 1.0
	}
	total := 0
	for _, m := range intermediates {
		if agg, ok := g.Aggregates[m]; ok {
			total += agg.TotalDegree()
		} else {
			total++
		}
	}
	avg := float64(total) / float64(len(intermediates))
	if avg == 0 {
		return 1.0
	}
	t := 1.0 / avg
	if t > 1 {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	return t
}

func containsVertex(path []step, v string) bool {
	for _, s := range path {
		if s.vertex == v {
			return true
		}
	}
	return false
}

func timeSpan(path []step) time.Duration {
	if len(path) < 2 {
		return 0
	}
	min, max := path[1].timestamp, path[1].timestamp
	for _, s := range path[1:] {
		if s.timestamp.Before(min) {
			min = s.timestamp
		}
		if s.timestamp.After(max) {
			max = s.timestamp
		}
	}
	return max.Sub(min)
}

func amountRatio(path []step) float64 {
	if len(path) < 2 {
		return 0
	}
	min, max := path[1].amount, path[1].amount
	for _, s := range path[1:] {
		if s.amount < min {
			min = s.amount
		}
		if s.amount > max {
			max = s.amount
		}
	}
	if min == 0 {
		if max == 0 {
			return 1
		}
		return 1e18
	}
	return max / min
}

func sequenceKey(members []string) string {
	key := ""
	for _, m := range members {
		key += m + "\x00"
	}
	return key
}
