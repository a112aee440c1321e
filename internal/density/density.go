// Package density dampens scores for accounts embedded in subgraphs with a
// low ratio of suspicious neighbors — an account surrounded mostly by
// ordinary counterparties is less likely to be a genuine ring member.
package density

import "github.com/vperiodt/mulehunter/internal/model"

// Config carries the threshold and multiplier from spec.md §4.7.
type Config struct {
	Threshold  float64
	Multiplier float64
}

// Adjustments returns, for every candidate account, the multiplier to apply
// to its aggregate score: Config.Multiplier when the local suspicious-
// neighbor ratio falls below Threshold, 1.0 otherwise.
func Adjustments(g *model.Graph, candidates map[string]struct{}, cfg Config) map[string]float64 {
	out := make(map[string]float64, len(candidates))
	for account := range candidates {
		neighbors := g.Neighbors(account)
		if len(neighbors) == 0 {
			out[account] = cfg.Multiplier
			continue
		}

		suspiciousNeighbors := 0
		for n := range neighbors {
			if _, ok := candidates[n]; ok {
				suspiciousNeighbors++
			}
		}

		ratio := float64(suspiciousNeighbors) / float64(len(neighbors))
		if ratio < cfg.Threshold {
			out[account] = cfg.Multiplier
		} else {
			out[account] = 1.0
		}
	}
	return out
}
