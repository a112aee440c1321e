// Package cycle enumerates directed simple cycles of bounded length that
// plausibly represent money cycling back to its origin.
package cycle

import (
	"context"
	"sort"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

// Config carries the thresholds from spec.md §6 relevant to cycle detection.
type Config struct {
	MinLen         int
	MaxLen         int
	TimeSpanLimit  time.Duration
	AmountRatioCap float64
	TimestampSlack time.Duration
}

type step struct {
	vertex        string
	transactionID string
	amount        float64
	timestamp     time.Time
}

// Detect walks the graph from every account in lexicographic order,
// extending along forward edges with a depth-limited DFS, and emits one
// Ring per canonically-distinct cycle. ctx is checked once per starting
// vertex, matching the vertex-loop-granularity cancellation spec.md §5
// requires of detectors.
func Detect(ctx context.Context, g *model.Graph, cfg Config) []model.Ring {
	starts := make([]string, len(g.Nodes))
	copy(starts, g.Nodes)
	sort.Strings(starts)

	d := &detector{graph: g, cfg: cfg, canonical: make(map[string]step0)}

	for _, start := range starts {
		if ctx.Err() != nil {
			break
		}
		d.path = []step{{vertex: start}}
		d.dfs(start)
	}

	rings := make([]model.Ring, 0, len(d.results))
	for _, r := range d.results {
		rings = append(rings, r)
	}
	sort.Slice(rings, func(i, j int) bool {
		return canonicalKey(rings[i].Members) < canonicalKey(rings[j].Members)
	})
	return rings
}

// step0 records the earliest first-edge timestamp seen for a canonical
// cycle, so a later, later-evidenced duplicate never displaces it.
type step0 struct {
	firstTimestamp time.Time
}

type detector struct {
	graph     *model.Graph
	cfg       Config
	path      []step
	canonical map[string]step0
	results   []model.Ring
}

func (d *detector) dfs(start string) {
	depth := len(d.path)
	if depth > d.cfg.MaxLen {
		return
	}
	current := d.path[depth-1].vertex

	for _, e := range d.graph.Forward[current] {
		if depth >= 2 && e.Timestamp.Before(d.path[depth-1].timestamp.Add(-d.cfg.TimestampSlack)) {
			continue
		}

		if e.Counterparty == start && depth >= d.cfg.MinLen {
			candidate := append(append([]step{}, d.path...), step{
				vertex:        start,
				transactionID: e.TransactionID,
				amount:        e.Amount,
				timestamp:     e.Timestamp,
			})
			d.admit(candidate)
			continue
		}

		if e.Counterparty == start || depth >= d.cfg.MaxLen || containsVertex(d.path, e.Counterparty) {
			continue
		}

		candidateSpan := append(append([]step{}, d.path...), step{
			vertex:        e.Counterparty,
			transactionID: e.TransactionID,
			amount:        e.Amount,
			timestamp:     e.Timestamp,
		})
		if timeSpan(candidateSpan) > d.cfg.TimeSpanLimit {
			continue
		}
		if amountRatio(candidateSpan) > d.cfg.AmountRatioCap {
			continue
		}

		d.path = append(d.path, step{
			vertex:        e.Counterparty,
			transactionID: e.TransactionID,
			amount:        e.Amount,
			timestamp:     e.Timestamp,
		})
		d.dfs(start)
		d.path = d.path[:len(d.path)-1]
	}
}

// admit validates and, if this is a fresh or earlier-evidenced canonical
// cycle, records it. candidate's first element carries no transaction (the
// start of the walk); the rest do.
func (d *detector) admit(candidate []step) {
	if timeSpan(candidate) > d.cfg.TimeSpanLimit {
		return
	}
	if amountRatio(candidate) > d.cfg.AmountRatioCap {
		return
	}

	members := make([]string, 0, len(candidate)-1)
	edgeIDs := make([]string, 0, len(candidate)-1)
	for _, s := range candidate[:len(candidate)-1] {
		members = append(members, s.vertex)
	}
	for _, s := range candidate[1:] {
		edgeIDs = append(edgeIDs, s.transactionID)
	}

	rotIdx := minIndex(members)
	members = rotate(members, rotIdx)
	edgeIDs = rotate(edgeIDs, rotIdx)
	key := canonicalKey(members)

	firstTS := candidate[1].timestamp
	if prev, ok := d.canonical[key]; ok && !firstTS.Before(prev.firstTimestamp) {
		return
	}
	d.canonical[key] = step0{firstTimestamp: firstTS}

	ring := model.Ring{
		PatternType: model.PatternCycle,
		Members:     members,
		EdgeIDs:     edgeIDs,
		Metadata: model.RingMetadata{
			TimeSpan:    timeSpan(candidate),
			AmountRatio: amountRatio(candidate),
		},
	}
	d.replaceOrAppend(key, ring)
}

func (d *detector) replaceOrAppend(key string, ring model.Ring) {
	for i, r := range d.results {
		if canonicalKey(r.Members) == key {
			d.results[i] = ring
			return
		}
	}
	d.results = append(d.results, ring)
}

func containsVertex(path []step, v string) bool {
	for _, s := range path {
		if s.vertex == v {
			return true
		}
	}
	return false
}

func timeSpan(candidate []step) time.Duration {
	if len(candidate) < 2 {
		return 0
	}
	min, max := candidate[1].timestamp, candidate[1].timestamp
	for _, s := range candidate[1:] {
		if s.timestamp.Before(min) {
			min = s.timestamp
		}
		if s.timestamp.After(max) {
			max = s.timestamp
		}
	}
	return max.Sub(min)
}

func amountRatio(candidate []step) float64 {
	if len(candidate) < 2 {
		return 0
	}
	min, max := candidate[1].amount, candidate[1].amount
	for _, s := range candidate[1:] {
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
		return maxFloat
	}
	return max / min
}

const maxFloat = 1e18

// minIndex returns the position of the lexicographically smallest element.
func minIndex(members []string) int {
	minIdx := 0
	for i, m := range members {
		if m < members[minIdx] {
			minIdx = i
		}
	}
	return minIdx
}

// rotate rotates s left by idx positions, preserving order.
func rotate(s []string, idx int) []string {
	if len(s) == 0 {
		return s
	}
	out := make([]string, 0, len(s))
	out = append(out, s[idx:]...)
	out = append(out, s[:idx]...)
	return out
}

func canonicalKey(members []string) string {
	key := ""
	for _, m := range members {
		key += m + "\x00"
	}
	return key
}
