package repository

import "errors"

// Sentinel kinds for tally store errors.
var (
	// ErrInvalidTrials rejects run creation with a non-positive trial count.
	ErrInvalidTrials = errors.New("invalid trial count")

	// ErrDuplicateTally rejects a second write for the same
	// (run, subject, outcome key). Tallies represent a completed aggregation
	// pass, not an incremental counter; a duplicate signals a bug in the
	// ingest pipeline and is fatal to that ingest attempt.
	ErrDuplicateTally = errors.New("duplicate tally")

	// ErrTallyOverflow rejects a count exceeding the run's trial total for
	// the subject kind. Data-integrity violation; callers must not retry
	// without correcting the input.
	ErrTallyOverflow = errors.New("tally exceeds trial total")

	// ErrUnknownRun marks queries against a run that does not exist.
	ErrUnknownRun = errors.New("unknown run")

	// ErrNoTallies marks queries against a subject with no recorded tallies.
	ErrNoTallies = errors.New("no tallies recorded")

	// ErrDeletionFailed wraps cascading deletion failures. Deletion is
	// all-or-nothing: either every tally of the run is removed or none.
	ErrDeletionFailed = errors.New("run deletion failed")
)
