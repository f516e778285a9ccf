// Package model contains domain models passed between layers.
package model

import "time"

// RunID identifies one simulation batch. IDs are allocated by the run
// registry and increase monotonically in creation order.
type RunID int64

// Run represents one batch of simulated-season trials. A run is immutable
// once created; deleting it cascades to every tally recorded against it.
type Run struct {
	ID        RunID
	Season    int
	CreatedAt time.Time

	// Trial totals are configured per subject kind. Games are trial-counted
	// per simulated game occurrence, teams per season completion, and the
	// two may legitimately differ within one run.
	TrialsPerGame uint64
	TrialsPerTeam uint64

	// Published marks the run visible to latest-run queries. Written last
	// by the ingest pipeline so readers never see a partial run as current.
	Published bool
}

// Trials returns the configured trial total for a subject kind.
func (r Run) Trials(kind SubjectKind) uint64 {
	if kind == KindGame {
		return r.TrialsPerGame
	}
	return r.TrialsPerTeam
}
