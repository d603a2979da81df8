// Package batch fans the selector+optimizer pipeline out over many units,
// isolating per-unit failures so one bad unit never aborts the run.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"rentpulse/server/internal/comps"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/pricing"
)

// PoolFetcher looks up the comparable candidate pool for one unit. The
// fetch is the only blocking step in the pipeline and honors ctx.
type PoolFetcher interface {
	FetchCandidatePool(ctx context.Context, unit models.Unit) ([]models.ComparableCandidate, error)
}

// Config bounds one batch run
type Config struct {
	MaxUnits int
	Workers  int
}

func DefaultConfig() Config {
	return Config{MaxUnits: 100, Workers: 4}
}

// Orchestrator runs the pricing pipeline over unit lists with a bounded
// worker pool
type Orchestrator struct {
	fetcher    PoolFetcher
	compsCfg   comps.Config
	pricingCfg pricing.Config
	cfg        Config
	logger     *logrus.Logger
}

func New(fetcher PoolFetcher, compsCfg comps.Config, pricingCfg pricing.Config, cfg Config, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		compsCfg:   compsCfg,
		pricingCfg: pricingCfg,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run optimizes every unit independently and aggregates the outcome.
// Results keep submission order even when workers complete out of order;
// counts are folded after all workers have joined rather than updated
// concurrently.
func (o *Orchestrator) Run(ctx context.Context, units []models.Unit, strategy pricing.Strategy, weight float64) models.BatchResult {
	if o.cfg.MaxUnits > 0 && len(units) > o.cfg.MaxUnits {
		o.logger.Warnf("Batch truncated from %d to %d units", len(units), o.cfg.MaxUnits)
		units = units[:o.cfg.MaxUnits]
	}

	type slot struct {
		result models.OptimizationResult
		err    error
	}
	slots := make([]slot, len(units))

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i].result, slots[i].err = o.optimizeOne(ctx, units[i], strategy, weight)
			}
		}()
	}
	for i := range units {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := models.BatchResult{
		TotalUnits: len(units),
		Results:    make([]models.OptimizationResult, 0, len(units)),
		Failures:   []models.BatchFailure{},
	}
	for i, s := range slots {
		if s.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, models.BatchFailure{
				UnitID: units[i].ID,
				Reason: s.err.Error(),
			})
			o.logger.WithError(s.err).WithField("unit_id", units[i].ID).Warn("Unit skipped in batch optimization")
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, s.result)
	}

	o.logger.WithFields(logrus.Fields{
		"total":     result.TotalUnits,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"strategy":  string(strategy),
	}).Info("Batch optimization complete")
	return result
}

// optimizeOne runs the full pipeline for a single unit on owned input
func (o *Orchestrator) optimizeOne(ctx context.Context, unit models.Unit, strategy pricing.Strategy, weight float64) (models.OptimizationResult, error) {
	if err := unit.Validate(); err != nil {
		return models.OptimizationResult{}, err
	}
	pool, err := o.fetcher.FetchCandidatePool(ctx, unit)
	if err != nil {
		return models.OptimizationResult{}, fmt.Errorf("failed to fetch candidate pool: %w", err)
	}
	_, stats := comps.Select(unit, pool, o.compsCfg)
	return pricing.Optimize(unit, stats, strategy, weight, o.pricingCfg)
}
