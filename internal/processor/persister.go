package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentpulse/server/config"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/queue"
)

// ErrStopped is returned to the queue when a batch arrives after shutdown
var ErrStopped = errors.New("persister is stopped")

// txRunner is the slice of *gorm.DB the persister needs, kept narrow so
// tests can swap in a mock
type txRunner interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// Persister drains the ingest queue and writes parsed batches to the
// database inside retried transactions
type Persister struct {
	db        txRunner
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.IngestQueue
	jobs      chan *models.IngestBatch
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewPersister creates a new persister instance
func NewPersister(db txRunner, queue *queue.IngestQueue, config *config.Config, logger *logrus.Logger) *Persister {
	ctx, cancel := context.WithCancel(context.Background())
	return &Persister{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		jobs:   make(chan *models.IngestBatch),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the queue and begins persisting batches
func (p *Persister) Start() {
	p.queue.Subscribe(p.enqueue)

	for i := 0; i < p.config.Processor.Count; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop gracefully shuts down the persister
func (p *Persister) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

// enqueue hands a queued batch to the worker pool
func (p *Persister) enqueue(batch *models.IngestBatch) error {
	select {
	case p.jobs <- batch:
		return nil
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// processLoop handles the continuous persisting of batches
func (p *Persister) processLoop() {
	defer p.waitGroup.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case batch := <-p.jobs:
			if err := p.processBatch(batch); err != nil {
				p.logger.WithError(err).WithField("batch_id", batch.ID).Error("Dropping batch")
			}
		}
	}
}

// processBatch persists a single batch with transaction and retry logic
func (p *Persister) processBatch(batch *models.IngestBatch) error {
	operation := func() error {
		return p.db.Transaction(func(tx *gorm.DB) error {
			switch batch.Kind {
			case models.IngestRentRoll:
				if err := upsertUnits(tx, batch.Units); err != nil {
					return fmt.Errorf("failed to upsert units batch: %w", err)
				}
			case models.IngestCompetition:
				if err := replaceListings(tx, batch.Listings); err != nil {
					return fmt.Errorf("failed to replace listings batch: %w", err)
				}
			default:
				return backoff.Permanent(fmt.Errorf("unknown batch kind: %s", batch.Kind))
			}
			return nil
		})
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = time.Duration(p.config.Processor.RetryDelay) * time.Second

	notify := func(err error, wait time.Duration) {
		p.logger.WithError(err).Warnf("Batch persist failed, retrying in %s", wait)
	}

	err := backoff.RetryNotify(operation, backoff.WithMaxRetries(strategy, uint64(p.config.Processor.MaxRetries)), notify)
	if err != nil {
		return fmt.Errorf("failed to persist batch after %d retries: %w", p.config.Processor.MaxRetries, err)
	}

	p.logger.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"kind":     batch.Kind,
		"units":    len(batch.Units),
		"listings": len(batch.Listings),
	}).Info("Successfully persisted batch")
	return nil
}

// upsertUnits writes rent roll rows keyed by unit ID, so re-importing a
// roll updates rents and statuses in place
func upsertUnits(tx *gorm.DB, units []models.Unit) error {
	for _, u := range units {
		var leaseEnd interface{}
		if u.LeaseEnd != nil {
			leaseEnd = u.LeaseEnd.Format("2006-01-02")
		}

		result := tx.Exec(`
			INSERT INTO units (id, property_name, unit_number, bedrooms, bathrooms, area_sqft, status, current_rent, market_rent, lease_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				property_name = excluded.property_name,
				unit_number = excluded.unit_number,
				bedrooms = excluded.bedrooms,
				bathrooms = excluded.bathrooms,
				area_sqft = excluded.area_sqft,
				status = excluded.status,
				current_rent = excluded.current_rent,
				market_rent = excluded.market_rent,
				lease_end = excluded.lease_end,
				updated_at = CURRENT_TIMESTAMP
		`, u.ID, u.PropertyName, u.UnitNumber, u.Bedrooms, u.Bathrooms, u.AreaSqft,
			string(u.Status), u.CurrentRent, u.MarketRent, leaseEnd)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// replaceListings swaps out each source's snapshot wholesale. A
// competition file describes the full current state of that source, so
// stale rows from earlier imports must not linger.
func replaceListings(tx *gorm.DB, listings []models.CompetitorListing) error {
	sources := make(map[string]bool)
	for _, l := range listings {
		if !sources[l.Source] {
			sources[l.Source] = true
			if result := tx.Exec(`DELETE FROM competitor_listings WHERE source = ?`, l.Source); result.Error != nil {
				return result.Error
			}
		}
	}

	for _, l := range listings {
		result := tx.Exec(`
			INSERT INTO competitor_listings (id, property_name, unit_number, bedrooms, bathrooms, area_sqft, price, is_available, days_vacant, source, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, l.ID, l.PropertyName, l.UnitNumber, l.Bedrooms, l.Bathrooms, l.AreaSqft,
			l.Price, l.Available, l.DaysVacant, l.Source, l.ImportedAt.Format("2006-01-02 15:04:05"))
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
