package confidence

import (
	"testing"
	"time"

	"github.com/vperiodt/mulehunter/internal/model"
)

func defaultConfig() Config {
	return Config{CycleAmountRatioCap: 1.25, ShellAmountRatioCap: 3.0, TimeSpanLimit: 72 * time.Hour}
}

func TestScore_TightThreeHopCycleScoresNearOne(t *testing.T) {
	ring := model.Ring{
		PatternType: model.PatternCycle,
		Members:     []string{"A", "B", "C"},
		Metadata:    model.RingMetadata{TimeSpan: time.Minute, AmountRatio: 1.0},
	}
	score := Score(ring, defaultConfig())
	if score < 0.95 {
		t.Errorf("expected a near-instant, ratio-1.0 cycle to score close to 1.0, got %f", score)
	}
}

func TestScore_LooseFiveHopCycleScoresLowerThanTightThreeHop(t *testing.T) {
	tight := model.Ring{
		PatternType: model.PatternCycle,
		Members:     []string{"A", "B", "C"},
		Metadata:    model.RingMetadata{TimeSpan: time.Minute, AmountRatio: 1.0},
	}
	loose := model.Ring{
		PatternType: model.PatternCycle,
		Members:     []string{"A", "B", "C", "D", "E"},
		Metadata:    model.RingMetadata{TimeSpan: 70 * time.Hour, AmountRatio: 1.24},
	}
	cfg := defaultConfig()
	if Score(loose, cfg) >= Score(tight, cfg) {
		t.Errorf("expected the looser, longer cycle to score lower than the tight one")
	}
}

func TestScore_SmurfHighVarianceScoresLowerThanUniform(t *testing.T) {
	uniform := model.Ring{
		PatternType: model.PatternSmurfing,
		Metadata:    model.RingMetadata{TimeSpan: time.Hour, AmountCV: 0, PeakDistinct: 12, TotalTxInWindow: 12},
	}
	noisy := model.Ring{
		PatternType: model.PatternSmurfing,
		Metadata:    model.RingMetadata{TimeSpan: time.Hour, AmountCV: 0.9, PeakDistinct: 12, TotalTxInWindow: 12},
	}
	cfg := defaultConfig()
	if Score(noisy, cfg) >= Score(uniform, cfg) {
		t.Errorf("expected high amount variance to lower a smurf ring's confidence")
	}
}

func TestScore_ShellUsesPrecomputedTightness(t *testing.T) {
	ring := model.Ring{
		PatternType: model.PatternShell,
		Metadata:    model.RingMetadata{TimeSpan: time.Hour, AmountRatio: 1.5, TightnessScore: 0.8},
	}
	score := Score(ring, defaultConfig())
	if score <= 0 || score > 1 {
		t.Fatalf("expected a score in (0,1], got %f", score)
	}
}

func TestScore_AlwaysClampedToUnitInterval(t *testing.T) {
	ring := model.Ring{
		PatternType: model.PatternCycle,
		Members:     []string{"A", "B", "C", "D", "E"},
		Metadata:    model.RingMetadata{TimeSpan: 500 * time.Hour, AmountRatio: 50}, // wildly out of bounds inputs
	}
	score := Score(ring, defaultConfig())
	if score < 0 || score > 1 {
		t.Fatalf("expected confidence to stay within [0,1] even for out-of-range metadata, got %f", score)
	}
}
