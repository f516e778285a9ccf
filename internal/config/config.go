// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error sentinels.
package config

import (
	"fmt"

	"github.com/okian/simcast/internal/domain/classify"
	"github.com/okian/simcast/internal/domain/model"
)

// Storage backend names.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// RuleConfig is one classification threshold in configuration form.
type RuleConfig struct {
	Space    string `koanf:"space"`
	Category string `koanf:"category"`
	MinRank  int    `koanf:"min_rank"`
	MaxRank  int    `koanf:"max_rank"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects the tally store backend: memory or sqlite.
	Storage string `koanf:"storage"`

	// StoragePath is the SQLite database file, required for sqlite storage.
	StoragePath string `koanf:"storage_path"`

	// IngestQueueSize bounds the in-memory feed batch queue.
	IngestQueueSize int `koanf:"ingest_queue_size"`

	// IngestWorkerCount sets the number of ingest workers.
	IngestWorkerCount int `koanf:"ingest_worker_count"`

	// RuleSetVersion tags the category vocabulary in use. The vocabulary is
	// closed and has changed between deployments, so the tag travels with
	// the thresholds.
	RuleSetVersion string `koanf:"rule_set_version"`

	// Rules are the ordered classification thresholds. Empty means the
	// built-in defaults.
	Rules []RuleConfig `koanf:"rules"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		Storage:           StorageMemory,
		StoragePath:       "simcast.db",
		IngestQueueSize:   64,
		IngestWorkerCount: 2,
	}
}

// RuleSet builds the classification rule set from configuration, falling
// back to the built-in defaults when no rules are configured.
func (c *Config) RuleSet() (*classify.RuleSet, error) {
	if len(c.Rules) == 0 {
		return classify.Default(), nil
	}
	version := c.RuleSetVersion
	if version == "" {
		return nil, fmt.Errorf("%w: rule_set_version is required with custom rules", ErrInvalidConfig)
	}
	rules := make([]classify.Rule, len(c.Rules))
	for i, r := range c.Rules {
		rules[i] = classify.Rule{
			Space:    model.RankSpace(r.Space),
			Category: model.Category(r.Category),
			MinRank:  r.MinRank,
			MaxRank:  r.MaxRank,
		}
	}
	rs, err := classify.New(version, rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return rs, nil
}
