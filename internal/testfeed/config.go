package testfeed

import "time"

// Config holds configuration for the feed exercise.
type Config struct {
	Batches       int           // Number of simulation batches to generate
	Games         int           // Number of games in the synthetic schedule
	TrialsPerGame uint64        // Trials behind each game tally group
	TrialsPerTeam uint64        // Trials behind each team ranking group
	Season        int           // Season year stamped on every batch
	Workers       int           // Number of concurrent generator workers
	Timeout       time.Duration // Maximum time to wait for ingestion to drain
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Stats holds feed exercise statistics.
type Stats struct {
	BatchesGenerated     int
	BatchesSubmitted     int
	BatchesDropped       int
	TalliesGenerated     int
	ProjectionsRetrieved int
	MarginsRetrieved     int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
