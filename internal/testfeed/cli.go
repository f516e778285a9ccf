package testfeed

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/simcast/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "feed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the feed exercise tool.
func ShowHelp() {
	os.Stdout.WriteString(`Simcast Feed Exercise Tool
==========================

A concurrent tool for exercising the simcast ingestion and projection
pipeline with synthetic simulation batches.

Usage:
  go run cmd/test-feed/main.go [options]

Options:
  -batches int
        Number of simulation batches to generate and submit (default 20)
  -games int
        Number of games in the synthetic schedule (default 272)
  -trials-per-game uint
        Trials behind each game tally group (default 10000)
  -trials-per-team uint
        Trials behind each team ranking group (default 10000)
  -season int
        Season year stamped on every batch (default current year)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        Maximum time to wait for ingestion to drain (default 60s)
  -log string
        Log file for test output (default: feed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Exercise with default settings
  go run cmd/test-feed/main.go

  # Exercise with custom parameters
  go run cmd/test-feed/main.go -batches 100 -workers 8

  # Exercise with verbose output
  go run cmd/test-feed/main.go -verbose -batches 50
`)
}
