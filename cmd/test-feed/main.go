package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/simcast/internal/testfeed"
)

// Default configuration constants.
const (
	defaultBatches       = 20
	defaultGames         = 272
	defaultTrialsPerGame = 10000
	defaultTrialsPerTeam = 10000
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 60 * time.Second
	defaultTestTimeout   = 10 * time.Minute
)

func main() {
	var (
		batches       = flag.Int("batches", defaultBatches, "Number of simulation batches to generate and submit")
		games         = flag.Int("games", defaultGames, "Number of games in the synthetic schedule")
		trialsPerGame = flag.Uint64("trials-per-game", defaultTrialsPerGame, "Trials behind each game tally group")
		trialsPerTeam = flag.Uint64("trials-per-team", defaultTrialsPerTeam, "Trials behind each team ranking group")
		season        = flag.Int("season", time.Now().Year(), "Season year stamped on every batch")
		workers       = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "Maximum time to wait for ingestion to drain")
		logFile       = flag.String("log", "", "Log file for test output (default: feed_log_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testfeed.ShowHelp()
		return
	}

	// Setup logging
	if err := testfeed.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create exercise configuration
	config := &testfeed.Config{
		Batches:       *batches,
		Games:         *games,
		TrialsPerGame: *trialsPerGame,
		TrialsPerTeam: *trialsPerTeam,
		Season:        *season,
		Workers:       *workers,
		Timeout:       *timeout,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	// Run the exercise
	if err := testfeed.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Feed exercise failed: " + err.Error() + "\n")
		return
	}
}
