// Package service composes the run registry, tally store, classification
// engine and probability projector behind one facade used by the HTTP API
// and the feed pipeline.
package service

import (
	"context"
	"sync"
	"time"

	feedqueue "github.com/okian/simcast/internal/adapters/feed/queue"
	feedworker "github.com/okian/simcast/internal/adapters/feed/worker"
	"github.com/okian/simcast/internal/adapters/repository"
	"github.com/okian/simcast/internal/domain/classify"
	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/internal/domain/projection"
	"github.com/okian/simcast/pkg/logger"
)

// Default service configuration constants.
const (
	defaultQueueSize   = 64
	defaultWorkerCount = 2
	stopTimeout        = 30 * time.Second
)

// Service implements the engine facade.
type Service struct {
	mu sync.Mutex

	store     repository.Store
	rules     *classify.RuleSet
	projector *projection.Projector
	queue     *feedqueue.InMemoryQueue
	pool      *feedworker.Pool

	queueSize   int
	workerCount int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the tally store; defaults to the in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRuleSet sets the initial classification rule set.
func WithRuleSet(rules *classify.RuleSet) Option {
	return func(s *Service) {
		if rules != nil {
			s.rules = rules
		}
	}
}

// WithQueueSize bounds the ingest queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rules:       classify.Default(),
		queueSize:   defaultQueueSize,
		workerCount: defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes components and launches the ingest pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}
	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.logger.Info(ctx, "using in-memory tally store")
	}

	s.projector = projection.New(s.store, s.rules)
	s.queue = feedqueue.NewInMemoryQueue(feedqueue.WithCapacity(s.queueSize))
	s.pool = feedworker.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("ruleSet", s.rules.Version()),
	)
	return nil
}

// Stop drains the ingest pipeline and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop(ctx)
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "engine stopped")
}

// SubmitBatch hands a simulator feed batch to the ingest pipeline.
// Returns false on backpressure or after shutdown.
func (s *Service) SubmitBatch(ctx context.Context, batch model.TallyBatch) bool {
	ok := s.queue.Enqueue(ctx, batch)
	if !ok {
		s.logger.Warn(ctx, "feed batch rejected",
			logger.String("batch", batch.BatchID),
		)
	}
	return ok
}

// SetRuleSet swaps the classification rule set, reclassifying every run at
// read time from this point on.
func (s *Service) SetRuleSet(rules *classify.RuleSet) {
	if rules == nil {
		return
	}
	s.mu.Lock()
	s.rules = rules
	projector := s.projector
	s.mu.Unlock()
	if projector != nil {
		projector.SetRuleSet(rules)
	}
}

// RuleSet returns the active rule set.
func (s *Service) RuleSet() *classify.RuleSet {
	if s.projector != nil {
		return s.projector.RuleSet()
	}
	return s.rules
}

// Run returns a run by id.
func (s *Service) Run(ctx context.Context, id model.RunID) (model.Run, error) {
	return s.store.Run(ctx, id)
}

// LatestRun returns the latest published run.
func (s *Service) LatestRun(ctx context.Context) (model.Run, bool, error) {
	return s.store.LatestRun(ctx)
}

// DeleteRun removes a run and its tallies.
func (s *Service) DeleteRun(ctx context.Context, id model.RunID) error {
	return s.store.DeleteRun(ctx, id)
}

// TalliesFor returns a subject's raw tallies for a run.
func (s *Service) TalliesFor(ctx context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error) {
	return s.store.TalliesFor(ctx, run, subject)
}

// Project computes one probability.
func (s *Service) Project(ctx context.Context, run model.RunID, subject model.Subject, category model.Category) (float64, error) {
	return s.projector.Project(ctx, run, subject, category)
}

// RunProjections computes team category projections for a run.
func (s *Service) RunProjections(ctx context.Context, run model.RunID, filter []model.Category) ([]model.Projection, error) {
	return s.projector.RunProjections(ctx, run, filter)
}

// CurrentProjections restricts projections to the latest published run.
func (s *Service) CurrentProjections(ctx context.Context, filter []model.Category) ([]model.Projection, error) {
	return s.projector.CurrentProjections(ctx, filter)
}

// Margins computes per-game odds and margins for a run, most competitive
// games first.
func (s *Service) Margins(ctx context.Context, run model.RunID) ([]model.GameOdds, error) {
	return s.projector.Margins(ctx, run)
}

// QueueDepth reports the number of feed batches waiting for ingest.
func (s *Service) QueueDepth(ctx context.Context) int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Len(ctx)
}
