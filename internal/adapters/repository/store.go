// Package repository defines the run registry / tally store interface and
// errors.
package repository

import (
	"context"

	"github.com/okian/simcast/internal/domain/model"
)

// Store provides durable access to runs and their aggregated tallies.
//
// Writes follow the single-writer-per-run discipline: one ingest pass
// records every tally of a run and then publishes it. Reads over published
// runs are safe at unlimited parallelism because tallies are never mutated
// after their single write.
type Store interface {
	// CreateRun allocates a new, unpublished run. Both trial totals must be
	// positive; otherwise ErrInvalidTrials.
	CreateRun(ctx context.Context, season int, trialsPerGame, trialsPerTeam uint64) (model.Run, error)

	// PublishRun makes a run visible to LatestRun. This is the visibility
	// barrier: called once, after every tally of the run has been recorded.
	PublishRun(ctx context.Context, id model.RunID) error

	// DeleteRun removes a run and cascades to all its tallies. Idempotent:
	// deleting an absent run is a no-op, which keeps cleanup scripts simple.
	DeleteRun(ctx context.Context, id model.RunID) error

	// Run returns a run by id, or ErrUnknownRun.
	Run(ctx context.Context, id model.RunID) (model.Run, error)

	// LatestRun returns the published run with the maximum id. The boolean
	// is false when no published runs exist; that is not an error.
	LatestRun(ctx context.Context) (model.Run, bool, error)

	// Record writes one tally. A second write for the same
	// (run, subject, outcome key) fails with ErrDuplicateTally. A count
	// exceeding the run's trial total for the subject kind, or pushing the
	// sum of a mutually-exclusive outcome group past that total, fails with
	// ErrTallyOverflow.
	Record(ctx context.Context, t model.Tally) error

	// TotalTrials returns the configured trial total for a subject kind
	// within the run, or ErrUnknownRun.
	TotalTrials(ctx context.Context, run model.RunID, kind model.SubjectKind) (uint64, error)

	// TalliesFor returns a subject's tallies in insertion order.
	// ErrUnknownRun if the run does not exist, ErrNoTallies if the subject
	// has none.
	TalliesFor(ctx context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error)

	// Subjects returns the run's subjects of one kind in first-recorded
	// order, or ErrUnknownRun.
	Subjects(ctx context.Context, run model.RunID, kind model.SubjectKind) ([]model.Subject, error)
}
