// Package scoring combines detector output, ring confidence, and density
// adjustments into per-account suspicion scores and per-ring risk scores,
// then assembles the final, deterministically ordered result.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

const (
	weightCycle    = 40.0
	weightSmurf    = 30.0
	weightShell    = 25.0
	weightVelocity = 10.0

	pairBonus       = 10.0
	cycleSmurfBonus = 10.0
	cycleShellBonus = 8.0
)

// Config carries the thresholds from spec.md §4.8 and §6. DensityThreshold
// and DensityMultiplier are accepted here for documentation purposes; the
// actual density pass runs through the densityAdjustments callback, which
// already closes over an internal/density.Config built from the same values.
type Config struct {
	FlagThreshold     int
	VelocityWindow    time.Duration
	VelocityMinTx     int
	DensityThreshold  float64
	DensityMultiplier float64
}

// Run executes the full scoring pipeline over the detected rings and
// returns the ranked suspicious-account list and ranked fraud-ring list.
func Run(g *model.Graph, cycles, smurfs, shells []model.Ring, cfg Config, scoreRingConfidence func(model.Ring) float64, densityAdjustments func(map[string]struct{}) map[string]float64) ([]model.AccountFinding, []model.Ring) {
	allRings := make([]model.Ring, 0, len(cycles)+len(smurfs)+len(shells))
	allRings = append(allRings, assignConfidence(cycles, scoreRingConfidence)...)
	allRings = append(allRings, assignConfidence(smurfs, scoreRingConfidence)...)
	allRings = append(allRings, assignConfidence(shells, scoreRingConfidence)...)
	allRings = assignRingIDs(allRings)

	// patterns/accountRings track every ring member — cycle, smurf, and
	// shell alike are active participants in the ring they belong to, and
	// each earns that pattern's weight below.
	patterns := make(map[string]map[string]bool)
	accountRings := make(map[string][]int) // index into allRings

	for i, ring := range allRings {
		for _, member := range ring.Members {
			if patterns[member] == nil {
				patterns[member] = make(map[string]bool)
			}
			patterns[member][string(ring.PatternType)] = true
			accountRings[member] = append(accountRings[member], i)
		}
	}

	velocityAccounts := velocityCheck(g, cfg.VelocityWindow, cfg.VelocityMinTx)

	// smurf weighted contribution: dampening from diversity/variance ratios,
	// applied to every member of the ring (spec.md §4.4), not just the hub.
	// An account swept into more than one smurf ring takes its strongest
	// (least-dampened) contribution.
	smurfWeight := make(map[string]float64)
	for _, ring := range allRings {
		if ring.PatternType != model.PatternSmurfing {
			continue
		}
		w := weightSmurf * smurfDampening(ring)
		for _, member := range ring.Members {
			if w > smurfWeight[member] {
				smurfWeight[member] = w
			}
		}
	}

	raw := make(map[string]float64)
	for account, p := range patterns {
		raw[account] = baseScore(p, smurfWeight[account], velocityAccounts[account])
	}
	// velocity-only accounts (no ring membership) still enter the cohort.
	for account := range velocityAccounts {
		if _, ok := raw[account]; !ok {
			raw[account] = weightVelocity
		}
	}

	// spec.md §4.8 normalizes percentile rank over the accounts with
	// raw > 0; a ring member that somehow nets a zero weight is still
	// flagged for participation below, but it's excluded from the ranking
	// population so it can't pad the bottom of the distribution and shift
	// everyone else's percentile multiplier.
	rankCohort := make(map[string]struct{})
	for account, score := range raw {
		if score > 0 {
			rankCohort[account] = struct{}{}
		}
	}

	// every ring member enters the full cohort even at raw score 0, since
	// spec.md §4.8 flags an account when it participates in a ring
	// regardless of score.
	cohort := make(map[string]struct{}, len(rankCohort))
	for account := range rankCohort {
		cohort[account] = struct{}{}
	}
	for account := range patterns {
		if _, ok := cohort[account]; !ok {
			cohort[account] = struct{}{}
		}
	}

	if len(cohort) == 0 {
		return nil, nil
	}

	// structural confidence multiplier
	preNorm := make(map[string]float64, len(rankCohort))
	for account := range rankCohort {
		conf := maxRingConfidence(allRings, accountRings[account])
		preNorm[account] = raw[account] * (0.8 + 0.4*conf)
	}

	// density multiplier
	densityMult := densityAdjustments(cohort)
	for account := range rankCohort {
		preNorm[account] *= densityMult[account]
	}

	final := percentileNormalize(preNorm)
	for account := range cohort {
		if _, ok := final[account]; !ok {
			final[account] = 0
		}
	}

	// ring risk scores, using final account scores of ring members
	for i := range allRings {
		allRings[i].RiskScore = ringRiskScore(allRings[i], final)
	}

	findings := buildFindings(cohort, patterns, accountRings, allRings, final, cfg.FlagThreshold, velocityAccounts)
	sortFindings(findings)

	sortRings(allRings)

	return findings, allRings
}

func assignConfidence(rings []model.Ring, score func(model.Ring) float64) []model.Ring {
	out := make([]model.Ring, len(rings))
	for i, r := range rings {
		r.Confidence = score(r)
		out[i] = r
	}
	return out
}

// assignRingIDs assigns RING_{PATTERN}_{NNNN} in a stable order: per pattern
// type, sorted by canonical member sequence, so IDs are deterministic
// regardless of detector emission order.
func assignRingIDs(rings []model.Ring) []model.Ring {
	byPattern := map[model.PatternType][]int{}
	for i, r := range rings {
		byPattern[r.PatternType] = append(byPattern[r.PatternType], i)
	}

	prefix := map[model.PatternType]string{
		model.PatternCycle:    "CYC",
		model.PatternSmurfing: "SMR",
		model.PatternShell:    "SHL",
	}

	for pt, indices := range byPattern {
		sort.Slice(indices, func(a, b int) bool {
			return memberKey(rings[indices[a]].Members) < memberKey(rings[indices[b]].Members)
		})
		for n, idx := range indices {
			rings[idx].ID = ringID(prefix[pt], n+1)
		}
	}
	return rings
}

func ringID(prefix string, n int) string {
	return fmt.Sprintf("RING_%s_%04d", prefix, n)
}

func memberKey(members []string) string {
	key := ""
	for _, m := range members {
		key += m + "\x00"
	}
	return key
}

func baseScore(patterns map[string]bool, smurfWeighted float64, velocity bool) float64 {
	score := 0.0
	c := patterns[string(model.PatternCycle)]
	s := patterns[string(model.PatternSmurfing)]
	h := patterns[string(model.PatternShell)]

	if c {
		score += weightCycle
	}
	if s {
		score += smurfWeighted
	}
	if h {
		score += weightShell
	}
	if velocity {
		score += weightVelocity
	}

	count := 0
	for _, v := range []bool{c, s, h} {
		if v {
			count++
		}
	}
	if count >= 2 {
		score += pairBonus
	}
	if c && s {
		score += cycleSmurfBonus
	}
	if c && h {
		score += cycleShellBonus
	}
	return score
}

func smurfDampening(ring model.Ring) float64 {
	mult := 1.0
	if ring.Metadata.DiversityRatio > 0.7 {
		d := 1 - (ring.Metadata.DiversityRatio-0.7)/0.3
		mult *= clampRange(d, 0.5, 1.0)
	}
	if ring.Metadata.AmountCV > 0.5 {
		v := 1 - minFloat(ring.Metadata.AmountCV-0.5, 0.5)
		mult *= clampRange(v, 0.5, 1.0)
	}
	return mult
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxRingConfidence(rings []model.Ring, indices []int) float64 {
	best := 0.0
	for _, i := range indices {
		if rings[i].Confidence > best {
			best = rings[i].Confidence
		}
	}
	return best
}

func percentileNormalize(preNorm map[string]float64) map[string]int {
	accounts := make([]string, 0, len(preNorm))
	for a := range preNorm {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return preNorm[accounts[i]] < preNorm[accounts[j]] })

	n := len(accounts)
	final := make(map[string]int, n)
	for account, score := range preNorm {
		rank := sort.Search(n, func(i int) bool { return preNorm[accounts[i]] > score })
		percentile := float64(rank) / float64(n)
		mult := clampRange(0.85+0.30*percentile, 0.85, 1.15)
		result := math.Min(100, math.Round(score*mult))
		final[account] = int(result)
	}
	return final
}

func ringRiskScore(ring model.Ring, final map[string]int) int {
	if len(ring.Members) == 0 {
		return 0
	}
	sum := 0
	for _, m := range ring.Members {
		sum += final[m]
	}
	mean := float64(sum) / float64(len(ring.Members))
	risk := mean * (0.7 + 0.3*ring.Confidence)
	if risk > 100 {
		risk = 100
	}
	return int(math.Round(risk))
}

func velocityCheck(g *model.Graph, window time.Duration, minTx int) map[string]bool {
	flagged := make(map[string]bool)
	for _, account := range g.Nodes {
		timestamps := mergedTimestamps(g, account)
		if len(timestamps) <= minTx {
			continue
		}
		sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

		right := 0
		n := len(timestamps)
		for left := 0; left < n; left++ {
			if right < left {
				right = left
			}
			for right < n && timestamps[right].Sub(timestamps[left]) <= window {
				right++
			}
			if right-left > minTx {
				flagged[account] = true
				break
			}
		}
	}
	return flagged
}

func mergedTimestamps(g *model.Graph, account string) []time.Time {
	out := g.Forward[account]
	in := g.Reverse[account]
	ts := make([]time.Time, 0, len(out)+len(in))
	for _, e := range out {
		ts = append(ts, e.Timestamp)
	}
	for _, e := range in {
		ts = append(ts, e.Timestamp)
	}
	return ts
}

func buildFindings(
	cohort map[string]struct{},
	accountPatterns map[string]map[string]bool,
	accountRings map[string][]int,
	allRings []model.Ring,
	final map[string]int,
	flagThreshold int,
	velocityAccounts map[string]bool,
) []model.AccountFinding {
	var findings []model.AccountFinding
	for account := range cohort {
		patterns := accountPatterns[account]
		hasRing := len(patterns) > 0
		score := final[account]
		if score < flagThreshold && !hasRing {
			continue
		}

		detected := make([]string, 0, len(patterns))
		for p := range patterns {
			detected = append(detected, p)
		}
		sort.Strings(detected)

		ringID := highestRiskRingID(allRings, accountRings[account])

		reasons := buildReasons(patterns, velocityAccounts[account], score)

		findings = append(findings, model.AccountFinding{
			AccountID:        account,
			SuspicionScore:   score,
			DetectedPatterns: detected,
			RingID:           ringID,
			Reasons:          reasons,
		})
	}
	return findings
}

func highestRiskRingID(allRings []model.Ring, indices []int) string {
	best := ""
	bestRisk := -1
	for _, i := range indices {
		r := allRings[i]
		if r.RiskScore > bestRisk || (r.RiskScore == bestRisk && (best == "" || r.ID < best)) {
			bestRisk = r.RiskScore
			best = r.ID
		}
	}
	return best
}

func buildReasons(patterns map[string]bool, velocity bool, score int) []string {
	var reasons []string
	if patterns[string(model.PatternCycle)] {
		reasons = append(reasons, "participates in a directed transaction cycle")
	}
	if patterns[string(model.PatternSmurfing)] {
		reasons = append(reasons, "fans transactions across many distinct counterparties in a short window")
	}
	if patterns[string(model.PatternShell)] {
		reasons = append(reasons, "sits in a layered pass-through chain of low-degree intermediaries")
	}
	if velocity {
		reasons = append(reasons, "unusually high transaction velocity")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "aggregate suspicion score exceeds the flag threshold")
	}
	return reasons
}

func sortFindings(findings []model.AccountFinding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].SuspicionScore != findings[j].SuspicionScore {
			return findings[i].SuspicionScore > findings[j].SuspicionScore
		}
		return findings[i].AccountID < findings[j].AccountID
	})
}

func sortRings(rings []model.Ring) {
	sort.Slice(rings, func(i, j int) bool {
		if rings[i].RiskScore != rings[j].RiskScore {
			return rings[i].RiskScore > rings[j].RiskScore
		}
		return rings[i].ID < rings[j].ID
	})
}
