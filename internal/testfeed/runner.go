package testfeed

import (
	"context"
	"fmt"
	"time"

	app "github.com/okian/simcast/internal/app"
	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/logger"
)

// Polling configuration constants.
const (
	drainPollInterval    = 100 * time.Millisecond
	percentageMultiplier = 100
)

// Run executes the complete feed exercise: it boots an in-process engine,
// pumps synthetic simulation batches through the ingest pipeline and checks
// the projections that come out the other side.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting simcast feed exercise",
		logger.Int("batches", config.Batches),
		logger.Int("games", config.Games),
		logger.Uint64("trialsPerGame", config.TrialsPerGame),
		logger.Uint64("trialsPerTeam", config.TrialsPerTeam),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Boot an in-process engine
	svc := app.New(
		app.WithLogger(logger.Get()),
		app.WithQueueSize(config.Batches),
		app.WithWorkerCount(config.Workers),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("engine start failed: %w", err)
	}
	defer svc.Stop()

	// Step 2: Generate batches
	roster := NewStaticRoster(config.Season, config.Games)
	batches, err := generateBatches(ctx, config, roster, stats)
	if err != nil {
		return fmt.Errorf("batch generation failed: %w", err)
	}

	// Step 3: Submit batches
	if err := submitBatches(ctx, svc, batches, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 4: Wait for ingestion to drain
	if err := waitForDrain(ctx, svc, config, stats); err != nil {
		return fmt.Errorf("ingestion did not drain: %w", err)
	}

	// Step 5: Retrieve projections and margins from the latest run
	projections, odds, err := retrieveProjections(ctx, svc, stats)
	if err != nil {
		return fmt.Errorf("projection retrieval failed: %w", err)
	}

	// Step 6: Verify results
	if err := verifyResults(ctx, config, projections, odds); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "feed exercise completed successfully")
	return nil
}

// submitBatches pushes every batch into the ingest queue. A full queue is
// counted as a drop rather than treated as fatal.
func submitBatches(ctx context.Context, svc *app.Service, batches []model.TallyBatch, stats *Stats) error {
	for i, batch := range batches {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during submission: %w", ctx.Err())
		default:
		}

		if svc.SubmitBatch(ctx, batch) {
			stats.BatchesSubmitted++
		} else {
			stats.BatchesDropped++
			logger.Get().Warn(ctx, "batch dropped, queue full",
				logger.Int("index", i),
				logger.String("batchID", batch.BatchID))
		}
	}

	logger.Get().Info(ctx, "submitted batches",
		logger.Int("submitted", stats.BatchesSubmitted),
		logger.Int("dropped", stats.BatchesDropped))
	return nil
}

// waitForDrain polls until the queue is empty and a published run is
// visible, or the configured timeout elapses.
func waitForDrain(ctx context.Context, svc *app.Service, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "waiting for ingestion to drain")

	deadline := time.Now().Add(config.Timeout)
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		depth := svc.QueueDepth(ctx)
		_, published, err := svc.LatestRun(ctx)
		if err != nil {
			return fmt.Errorf("latest run lookup failed: %w", err)
		}
		if depth == 0 && (published || stats.BatchesSubmitted == 0) {
			logger.Get().Info(ctx, "ingestion drained")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s with queue depth %d", config.Timeout, depth)
		}
	}
}

// retrieveProjections fetches the current projections and the latest run's
// game odds.
func retrieveProjections(ctx context.Context, svc *app.Service, stats *Stats) ([]model.Projection, []model.GameOdds, error) {
	projections, err := svc.CurrentProjections(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("current projections: %w", err)
	}
	stats.ProjectionsRetrieved = len(projections)

	run, ok, err := svc.LatestRun(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("latest run: %w", err)
	}
	if !ok {
		return projections, nil, nil
	}

	odds, err := svc.Margins(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("margins: %w", err)
	}
	stats.MarginsRetrieved = len(odds)
	return projections, odds, nil
}

// displayFinalStats prints the final exercise statistics.
func displayFinalStats(stats *Stats) {
	var batchesPerSecond float64
	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesSubmitted) / stats.Duration.Seconds()
	}

	var submitRate float64
	if stats.BatchesGenerated > 0 {
		submitRate = float64(stats.BatchesSubmitted) / float64(stats.BatchesGenerated) * percentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("batchesGenerated", stats.BatchesGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesDropped", stats.BatchesDropped),
		logger.Int("talliesGenerated", stats.TalliesGenerated),
		logger.Int("projectionsRetrieved", stats.ProjectionsRetrieved),
		logger.Int("marginsRetrieved", stats.MarginsRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("submitRate", submitRate),
		logger.Float64("batchesPerSecond", batchesPerSecond))
}
