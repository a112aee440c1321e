// Package pipeline wires ingestion, graph construction, pattern detection,
// confidence scoring, and density adjustment into a single analysis run.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vperiodt/mulehunter/internal/confidence"
	"github.com/vperiodt/mulehunter/internal/config"
	"github.com/vperiodt/mulehunter/internal/density"
	"github.com/vperiodt/mulehunter/internal/detect/cycle"
	"github.com/vperiodt/mulehunter/internal/detect/shell"
	"github.com/vperiodt/mulehunter/internal/detect/smurf"
	"github.com/vperiodt/mulehunter/internal/graphbuild"
	"github.com/vperiodt/mulehunter/internal/ingest"
	"github.com/vperiodt/mulehunter/internal/model"
	"github.com/vperiodt/mulehunter/internal/scoring"
)

// Store is the subset of persistence behaviour the pipeline depends on. A
// nil Store leaves the pipeline running standalone.
type Store interface {
	SaveAnalysis(ctx context.Context, runID string, result model.AnalysisResult) error
}

// Pipeline runs one CSV batch through the full detection stack.
type Pipeline struct {
	cfg    config.AnalysisConfig
	logger *slog.Logger
	store  Store
}

// New builds a Pipeline. store may be nil.
func New(cfg config.AnalysisConfig, logger *slog.Logger, store Store) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger, store: store}
}

// Run ingests csvBytes, builds the transaction graph, runs every detector
// concurrently, and scores the result. The returned error is one of
// *ingest.SchemaError, *ingest.TooManyTransactionsError,
// *ingest.EmptyBatchError, or *InternalError; all other error types
// indicate a defect in a caller's assumptions about this contract.
func (p *Pipeline) Run(ctx context.Context, csvBytes []byte) (model.AnalysisResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := p.logger.With("run_id", runID)

	logger.Info("ingest started", "bytes", len(csvBytes))
	ingestResult, err := ingest.Ingest(logger, csvBytes, p.cfg.MaxTransactions)
	if err != nil {
		logger.Warn("ingest rejected batch", "error", err)
		return model.AnalysisResult{}, err
	}
	logger.Info("ingest complete", "transactions", len(ingestResult.Transactions), "dropped", len(ingestResult.Dropped))

	graph := graphbuild.Build(ingestResult.Transactions)
	logger.Info("graph built", "accounts", len(graph.Nodes))

	cycles, smurfs, shells, err := p.detectAll(ctx, graph, runID)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	logger.Info("detection complete", "cycles", len(cycles), "smurf_hubs", len(smurfs), "shell_chains", len(shells))

	confCfg := confidence.Config{
		CycleAmountRatioCap: p.cfg.CycleAmountRatio,
		ShellAmountRatioCap: p.cfg.ShellAmountRatio,
		TimeSpanLimit:       time.Duration(p.cfg.CycleTimeSpanHours * float64(time.Hour)),
	}
	scoreRing := func(r model.Ring) float64 { return confidence.Score(r, confCfg) }

	densityCfg := density.Config{Threshold: p.cfg.DensityThreshold, Multiplier: 0.8}
	adjustments := func(candidates map[string]struct{}) map[string]float64 {
		return density.Adjustments(graph, candidates, densityCfg)
	}

	scoringCfg := scoring.Config{
		FlagThreshold:     p.cfg.FlagThreshold,
		VelocityWindow:    time.Duration(p.cfg.VelocityWindowHours * float64(time.Hour)),
		VelocityMinTx:     p.cfg.VelocityMinTx,
		DensityThreshold:  p.cfg.DensityThreshold,
		DensityMultiplier: 0.8,
	}

	findings, rings := scoring.Run(graph, cycles, smurfs, shells, scoringCfg, scoreRing, adjustments)

	result := model.AnalysisResult{
		SuspiciousAccounts: findings,
		FraudRings:         rings,
		Summary: model.Summary{
			TotalAccountsAnalyzed:     len(graph.Nodes),
			SuspiciousAccountsFlagged: len(findings),
			FraudRingsDetected:        len(rings),
			ProcessingTimeSeconds:     roundSeconds(time.Since(start)),
		},
	}

	if p.store != nil {
		if err := p.store.SaveAnalysis(ctx, runID, result); err != nil {
			logger.Error("failed to persist analysis result", "error", err)
			return model.AnalysisResult{}, newInternalError(runID, "store", err)
		}
	}

	logger.Info("analysis complete",
		"flagged", result.Summary.SuspiciousAccountsFlagged,
		"rings", result.Summary.FraudRingsDetected,
		"seconds", result.Summary.ProcessingTimeSeconds,
	)
	return result, nil
}

// detectAll fans the three independent detectors out across goroutines,
// following the same worker/result-channel shape as the bulk ingestor this
// module was adapted from.
func (p *Pipeline) detectAll(ctx context.Context, g *model.Graph, runID string) ([]model.Ring, []model.Ring, []model.Ring, error) {
	type outcome struct {
		component string
		rings     []model.Ring
		err       error
	}

	jobs := []struct {
		component string
		run       func() []model.Ring
	}{
		{"cycle", func() []model.Ring {
			return cycle.Detect(ctx, g, cycle.Config{
				MinLen:         p.cfg.CycleMinLen,
				MaxLen:         p.cfg.CycleMaxLen,
				TimeSpanLimit:  time.Duration(p.cfg.CycleTimeSpanHours * float64(time.Hour)),
				AmountRatioCap: p.cfg.CycleAmountRatio,
				TimestampSlack: p.cfg.TimestampSlack,
			})
		}},
		{"smurf", func() []model.Ring {
			return smurf.Detect(ctx, g, smurf.Config{
				MinCounterparties: p.cfg.SmurfMinCounterparties,
				Window:            time.Duration(p.cfg.SmurfWindowHours * float64(time.Hour)),
			})
		}},
		{"shell", func() []model.Ring {
			return shell.Detect(ctx, g, shell.Config{
				MinLen:             p.cfg.ShellMinLen,
				MaxLen:             p.cfg.ShellMaxLen,
				IntermediateDegMin: p.cfg.ShellIntermediateDegreeMin,
				IntermediateDegMax: p.cfg.ShellIntermediateDegreeMax,
				AmountRatioCap:     p.cfg.ShellAmountRatio,
				MinAmount:          p.cfg.ShellMinAmount,
				TimeSpanLimit:      time.Duration(p.cfg.CycleTimeSpanHours * float64(time.Hour)),
				TimestampSlack:     p.cfg.TimestampSlack,
			})
		}},
	}

	results := make(chan outcome, len(jobs))
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(component string, run func() []model.Ring) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results <- outcome{component: component, err: newInternalError(runID, component, panicError{r})}
				}
			}()
			results <- outcome{component: component, rings: run()}
		}(job.component, job.run)
	}
	wg.Wait()
	close(results)

	byComponent := make(map[string][]model.Ring, len(jobs))
	for res := range results {
		if res.err != nil {
			return nil, nil, nil, res.err
		}
		byComponent[res.component] = res.rings
	}

	if ctx.Err() != nil {
		return nil, nil, nil, newInternalError(runID, "detect", ctx.Err())
	}

	return byComponent["cycle"], byComponent["smurf"], byComponent["shell"], nil
}

type panicError struct{ v any }

func (p panicError) Error() string {
	return "panic: " + toString(p.v)
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}

func roundSeconds(d time.Duration) float64 {
	return float64(int(d.Seconds()*10000+0.5)) / 10000
}
