package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/metrics"
	"github.com/ownage/approvedeny-go/internal/models"
)

const defaultMaxRetries = 5

// ResponseFetcher is the part of the approvedeny client the pool needs.
type ResponseFetcher interface {
	GetCheckRequestResponse(ctx context.Context, checkRequestID string) (approvedeny.Document, error)
}

// Pool manages a pool of workers and a job queue.
type Pool struct {
	JobQueue chan models.Job

	// MaxRetries bounds the retries of a transient fetch failure.
	MaxRetries uint64
	// NewBackOff returns the retry schedule for one job.
	NewBackOff func() backoff.BackOff
	// Metrics may be nil.
	Metrics *metrics.Metrics

	wg               sync.WaitGroup
	logger           *slog.Logger
	idempotencyStore *IdempotencyStore
	fetcher          ResponseFetcher
}

// NewPool creates a new worker pool.
func NewPool(maxQueueSize int, logger *slog.Logger, store *IdempotencyStore, fetcher ResponseFetcher) *Pool {
	return &Pool{
		JobQueue:         make(chan models.Job, maxQueueSize),
		MaxRetries:       defaultMaxRetries,
		NewBackOff:       defaultBackOff,
		logger:           logger,
		idempotencyStore: store,
		fetcher:          fetcher,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Start launches the worker goroutines. Cancelling ctx aborts pending retries
// and in-flight API calls.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 1; i <= numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish processing.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool... Closing job queue.")
	close(p.JobQueue) // Signal workers to stop by closing the channel.
	p.wg.Wait()
	p.logger.Info("All workers have stopped.")
}

// worker is the background goroutine that processes jobs from the queue.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Info("Worker started", "worker_id", id)

	for job := range p.JobQueue {
		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, job models.Job) {
	var event models.CheckRequestEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		p.logger.Error("Worker failed to unmarshal job payload", "worker_id", workerID, "job_id", job.ID, "error", err)
		p.Metrics.Job("malformed")
		return // Discard unparseable job.
	}

	key := event.DedupKey(job.Signature)
	logger := p.logger.With(
		"worker_id", workerID,
		"job_id", job.ID,
		"event_key", key,
		"check_request_id", event.CheckRequestID,
	)

	if !p.idempotencyStore.Reserve(key) {
		logger.Warn("Duplicate webhook event detected and ignored")
		p.Metrics.Job("duplicate")
		return
	}

	doc, err := p.fetchResponse(ctx, logger, event)
	if err == nil {
		logger.Info("Check request response fetched", "event", event.Event, "status", event.Status)
		p.idempotencyStore.SetResponse(event.CheckRequestID, doc)
		p.idempotencyStore.Set(key)
		p.Metrics.Job("processed")
		return
	}

	switch outcome(err, ctx.Err() != nil) {
	case "permanent_failure":
		logger.Error("Event failed with permanent error, will not be retried", "error", err)
		p.idempotencyStore.Set(key)
		p.Metrics.Job("permanent_failure")
	case "abandoned":
		logger.Warn("Event abandoned during shutdown", "error", err)
		p.idempotencyStore.Release(key)
		p.Metrics.Job("abandoned")
	default:
		logger.Error("Job failed after max retries, dropping event", "error", err)
		p.idempotencyStore.Set(key) // Mark as processed so a redelivery is not retried forever.
		p.Metrics.Job("retries_exhausted")
	}
}

// fetchResponse loads the check request response for event, retrying
// transport failures with backoff.
func (p *Pool) fetchResponse(ctx context.Context, logger *slog.Logger, event models.CheckRequestEvent) (approvedeny.Document, error) {
	if event.CheckRequestID == "" {
		return nil, &ErrPermanent{Err: errors.New("event has no check_request_id")}
	}

	var (
		doc     approvedeny.Document
		attempt int
	)
	operation := func() error {
		attempt++
		d, err := p.fetcher.GetCheckRequestResponse(ctx, event.CheckRequestID)
		if err != nil {
			return &ErrTransient{CheckRequestID: event.CheckRequestID, Err: err}
		}
		if d == nil {
			return backoff.Permanent(&ErrPermanent{CheckRequestID: event.CheckRequestID, Err: errors.New("response is not a JSON object")})
		}
		doc = d
		return nil
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("Event failed with transient error, retrying", "error", err, "attempt", attempt, "delay", delay)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.NewBackOff(), p.MaxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return doc, nil
}
