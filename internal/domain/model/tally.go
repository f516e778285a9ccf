package model

// Tally is the atomic aggregated fact: how many trials of one run ended in
// one outcome for one subject. Tallies are written once during ingest and
// never updated in place.
type Tally struct {
	Run     RunID
	Subject Subject
	Outcome OutcomeKey
	Count   uint64
}

// Projection is a read-time derived row; it is never persisted.
type Projection struct {
	Run         RunID
	Subject     Subject
	Category    Category
	Space       RankSpace
	Probability float64
}

// GameOdds bundles the per-result probabilities of one game together with
// the margin metric used to rank games by competitiveness.
type GameOdds struct {
	Run     RunID
	Subject Subject
	HomeWin float64
	AwayWin float64
	Tie     float64
	Margin  float64
}

// BatchTally is one aggregated triple supplied by the simulator feed.
type BatchTally struct {
	Subject Subject
	Outcome OutcomeKey
	Count   uint64
}

// TallyBatch is one completed aggregation pass from the simulator: every
// tally of one run plus the per-subject-kind trial totals. The engine
// allocates the run id; the feed only names the batch.
type TallyBatch struct {
	BatchID       string
	Season        int
	TrialsPerGame uint64
	TrialsPerTeam uint64
	Tallies       []BatchTally
}
