package queue

import (
	"errors"
	"rentpulse/server/internal/models"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// IngestQueue represents an in-memory queue for ingest batches
type IngestQueue struct {
	items    chan *models.IngestBatch
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(*models.IngestBatch) error
}

// NewIngestQueue creates a new ingest queue with the specified buffer size
func NewIngestQueue(bufferSize int, logger *logrus.Logger) *IngestQueue {
	return &IngestQueue{
		items:    make(chan *models.IngestBatch, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(*models.IngestBatch) error, 0),
	}
}

// Push adds a batch to the queue
func (q *IngestQueue) Push(batch *models.IngestBatch) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- batch:
		q.logger.WithFields(logrus.Fields{
			"batch_id": batch.ID,
			"kind":     batch.Kind,
			"units":    len(batch.Units),
			"listings": len(batch.Listings),
		}).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *IngestQueue) Subscribe(handler func(*models.IngestBatch) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *IngestQueue) Start() {
	go q.process()
}

// process handles the queue processing loop
func (q *IngestQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *IngestQueue) processBatch(batch *models.IngestBatch) {
	if batch == nil {
		return
	}

	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("batch_id", batch.ID).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added
func (q *IngestQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue
func (q *IngestQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *IngestQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
