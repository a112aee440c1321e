// Package confidence scores each ring's structural tightness: how close
// together in time, how uniform in amount, and how tight its topology is.
package confidence

import (
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

// Config carries the ratio caps needed to normalize the amount-uniformity
// component per pattern type.
type Config struct {
	CycleAmountRatioCap float64
	ShellAmountRatioCap float64
	TimeSpanLimit       time.Duration
}

// Score computes ring.Confidence in place-equivalent fashion, returning the
// value so callers can also store it on a copy.
func Score(ring model.Ring, cfg Config) float64 {
	temporal := temporalScore(ring, cfg)
	amount := amountScore(ring, cfg)
	tightness := topologyScore(ring)

	confidence := 0.4*temporal + 0.3*amount + 0.3*tightness
	return clamp01(confidence)
}

func temporalScore(ring model.Ring, cfg Config) float64 {
	if cfg.TimeSpanLimit <= 0 {
		return 1
	}
	ratio := float64(ring.Metadata.TimeSpan) / float64(cfg.TimeSpanLimit)
	return 1 - ratio
}

func amountScore(ring model.Ring, cfg Config) float64 {
	switch ring.PatternType {
	case model.PatternCycle:
		return uniformityFromRatio(ring.Metadata.AmountRatio, cfg.CycleAmountRatioCap)
	case model.PatternShell:
		return uniformityFromRatio(ring.Metadata.AmountRatio, cfg.ShellAmountRatioCap)
	case model.PatternSmurfing:
		return 1 - clampMin1(ring.Metadata.AmountCV)
	default:
		return 0
	}
}

func uniformityFromRatio(ratio, cap float64) float64 {
	if cap <= 0 {
		return 1
	}
	return 1 - clampMin1((ratio-1)/cap)
}

func topologyScore(ring model.Ring) float64 {
	switch ring.PatternType {
	case model.PatternCycle:
		length := float64(len(ring.Members))
		return 1 - (length-3)/2
	case model.PatternShell:
		return ring.Metadata.TightnessScore
	case model.PatternSmurfing:
		if ring.Metadata.TotalTxInWindow == 0 {
			return 0
		}
		return clamp01(float64(ring.Metadata.PeakDistinct) / float64(ring.Metadata.TotalTxInWindow))
	default:
		return 0
	}
}

func clampMin1(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
