// Package worker ingests simulator feed batches into the tally store.
//
// Each worker owns whole batches, so every run has exactly one logical
// writer: the worker creates the run, records every tally, and only then
// publishes the run id for latest-run queries. A batch that fails mid-ingest
// is rolled back by deleting the partial run; tallies are never clamped or
// partially retained.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	feedqueue "github.com/okian/simcast/internal/adapters/feed/queue"
	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/logger"
	"github.com/okian/simcast/pkg/metrics"
)

// Default worker configuration constants.
const defaultWorkerCount = 2

// Batch abstracts what workers read off the queue.
type Batch = feedqueue.Batch

// Registry is the write surface workers need from the store.
type Registry interface {
	CreateRun(ctx context.Context, season int, trialsPerGame, trialsPerTeam uint64) (model.Run, error)
	PublishRun(ctx context.Context, id model.RunID) error
	DeleteRun(ctx context.Context, id model.RunID) error
	Record(ctx context.Context, t model.Tally) error
}

// Queue defines how workers receive batches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Batch
}

// Worker processes feed batches until stopped.
type Worker struct {
	queue    Queue
	registry Registry
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, registry Registry, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		registry: registry,
		name:     "ingest",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			if _, err := w.ingest(ctx, batch); err != nil {
				w.logger.Error(ctx, "batch ingest failed",
					logger.String("batch", batch.BatchID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// ingest writes one batch as a fresh run. The run id is returned for tests;
// callers observe new runs through LatestRun after publication.
func (w *Worker) ingest(ctx context.Context, batch Batch) (model.RunID, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestLatency(float64(time.Since(start).Milliseconds()))
	}()

	run, err := w.registry.CreateRun(ctx, batch.Season, batch.TrialsPerGame, batch.TrialsPerTeam)
	if err != nil {
		metrics.RecordIngestError()
		return 0, fmt.Errorf("create run for batch %s: %w", batch.BatchID, err)
	}

	for _, t := range batch.Tallies {
		tally := model.Tally{
			Run:     run.ID,
			Subject: t.Subject,
			Outcome: t.Outcome,
			Count:   t.Count,
		}
		if err := w.registry.Record(ctx, tally); err != nil {
			// Fatal to this ingest attempt; roll the partial run back.
			metrics.RecordIngestError()
			if delErr := w.registry.DeleteRun(ctx, run.ID); delErr != nil {
				w.logger.Error(ctx, "rollback of partial run failed",
					logger.Int("run", int(run.ID)),
					logger.Error(delErr),
				)
			}
			return 0, fmt.Errorf("record tally in batch %s: %w", batch.BatchID, err)
		}
	}

	// Visibility barrier: all tallies durable, now expose the run.
	if err := w.registry.PublishRun(ctx, run.ID); err != nil {
		metrics.RecordIngestError()
		return 0, fmt.Errorf("publish run %d: %w", run.ID, err)
	}

	metrics.RecordRunIngested()
	w.logger.Info(ctx, "run ingested",
		logger.Int("run", int(run.ID)),
		logger.Int("season", batch.Season),
		logger.Int("tallies", len(batch.Tallies)),
	)
	return run.ID, nil
}

// Pool manages a fixed set of ingest workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, queue Queue, registry Registry) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("ingest-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(queue, registry, WithName("ingest-"+strconv.Itoa(i)))
	}
	metrics.UpdateIngestWorkers(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts the pool down, waiting for in-flight batches.
func (p *Pool) Stop(ctx context.Context) {
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly",
				logger.String("worker", w.name),
				logger.Error(err),
			)
		}
	}
	metrics.UpdateIngestWorkers(0)
}
