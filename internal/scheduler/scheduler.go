package scheduler

import (
	"context"
	"fmt"
	"os"
	"rentpulse/server/config"
	"rentpulse/server/internal/batch"
	"rentpulse/server/internal/database"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/pricing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// A sweep over the whole portfolio should never outlive the night
const sweepTimeout = 15 * time.Minute

// Store is the slice of the database the sweep needs
type Store interface {
	batch.PoolFetcher
	ListUnits(filter database.UnitFilter) ([]models.Unit, error)
}

// SweepNotifier receives the result of every finished sweep
type SweepNotifier interface {
	NotifySweepResult(result models.BatchResult) error
}

// Scheduler runs the periodic reprice sweep over all units needing
// pricing
type Scheduler struct {
	cron     *cron.Cron
	store    Store
	settings *config.SettingsStore
	notifier SweepNotifier
	batchCfg batch.Config
	strategy string
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler. An empty strategy falls back to
// the stored default at sweep time.
func NewScheduler(store Store, settings *config.SettingsStore, notifier SweepNotifier, batchCfg batch.Config, strategy string, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		cron:     cron.New(),
		store:    store,
		settings: settings,
		notifier: notifier,
		batchCfg: batchCfg,
		strategy: strategy,
		logger:   logger,
	}
}

// Register schedules the reprice sweep under the given cron spec
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.repriceSweep); err != nil {
		return fmt.Errorf("failed to register reprice job: %w", err)
	}
	return nil
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop gracefully stops the scheduler, waiting for a running sweep
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunSweepNow executes the reprice sweep immediately
func (s *Scheduler) RunSweepNow() {
	s.repriceSweep()
}

func (s *Scheduler) repriceSweep() {
	start := time.Now()
	s.logger.Info("Starting scheduled reprice sweep")

	needsPricing := true
	units, err := s.store.ListUnits(database.UnitFilter{NeedsPricing: &needsPricing})
	if err != nil {
		s.logger.WithError(err).Error("Reprice sweep failed to list units")
		return
	}
	if len(units) == 0 {
		s.logger.Info("Reprice sweep found nothing to price")
		return
	}

	settings := s.settings.Get()
	name := s.strategy
	if name == "" {
		name = settings.DefaultStrategy
	}
	strategy, err := pricing.ParseStrategy(name)
	if err != nil {
		s.logger.WithError(err).Error("Reprice sweep strategy is invalid")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	orchestrator := batch.New(s.store, settings.CompsConfig(), settings.PricingConfig(), s.batchCfg, s.logger)
	result := orchestrator.Run(ctx, units, strategy, settings.BalancedWeight)

	s.logger.WithFields(logrus.Fields{
		"total":     result.TotalUnits,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"strategy":  string(strategy),
		"elapsed":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("Completed scheduled reprice sweep")

	if s.notifier != nil {
		if err := s.notifier.NotifySweepResult(result); err != nil {
			s.logger.WithError(err).Error("Failed to send sweep report")
		}
	}
}
