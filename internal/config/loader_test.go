package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/simcast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Storage, convey.ShouldEqual, config.StorageMemory)
				convey.So(cfg.IngestQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.IngestWorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})

			convey.Convey("And the default rule set should be the built-in vocabulary", func() {
				convey.So(err, convey.ShouldBeNil)
				rules, err := cfg.RuleSet()
				convey.So(err, convey.ShouldBeNil)
				convey.So(rules.Version(), convey.ShouldEqual, "nfl-2023")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SIMCAST_ADDR", ":8080")
			_ = os.Setenv("SIMCAST_STORAGE", "sqlite")
			_ = os.Setenv("SIMCAST_STORAGE_PATH", "/tmp/simcast-test.db")
			_ = os.Setenv("SIMCAST_INGEST_QUEUE_SIZE", "128")
			_ = os.Setenv("SIMCAST_INGEST_WORKER_COUNT", "4")
			_ = os.Setenv("SIMCAST_LOG_LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Storage, convey.ShouldEqual, config.StorageSQLite)
				convey.So(cfg.StoragePath, convey.ShouldEqual, "/tmp/simcast-test.db")
				convey.So(cfg.IngestQueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.IngestWorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := `addr: ":7070"
ingest_queue_size: 16
rule_set_version: nfl-2019
rules:
  - space: playoff_seed
    category: division winner
    min_rank: 1
    max_rank: 4
  - space: playoff_seed
    category: wildcard team
    min_rank: 5
    max_rank: 6
  - space: playoff_seed
    category: playoff team
    min_rank: 1
    max_rank: 6
`
			convey.So(os.WriteFile(path, []byte(yaml), 0600), convey.ShouldBeNil)
			_ = os.Setenv("SIMCAST_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.IngestQueueSize, convey.ShouldEqual, 16)
			})

			convey.Convey("And the configured rules should build a rule set", func() {
				convey.So(err, convey.ShouldBeNil)
				rules, err := cfg.RuleSet()
				convey.So(err, convey.ShouldBeNil)
				convey.So(rules.Version(), convey.ShouldEqual, "nfl-2019")
				convey.So(rules.Rules(), convey.ShouldHaveLength, 3)
			})

			convey.Convey("And env should still take precedence over the file", func() {
				_ = os.Setenv("SIMCAST_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			convey.Convey("Then an unknown storage backend should fail", func() {
				clearConfigEnvVars()
				_ = os.Setenv("SIMCAST_STORAGE", "postgres")
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("Then sqlite storage without a path should fail", func() {
				clearConfigEnvVars()
				_ = os.Setenv("SIMCAST_STORAGE", "sqlite")
				_ = os.Setenv("SIMCAST_STORAGE_PATH", " ")
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("Then a non-positive queue size should fail", func() {
				clearConfigEnvVars()
				_ = os.Setenv("SIMCAST_INGEST_QUEUE_SIZE", "0")
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("Then custom rules without a version tag should fail", func() {
				clearConfigEnvVars()
				path := filepath.Join(t.TempDir(), "config.yaml")
				yaml := `rules:
  - space: playoff_seed
    category: playoff team
    min_rank: 1
    max_rank: 7
`
				convey.So(os.WriteFile(path, []byte(yaml), 0600), convey.ShouldBeNil)
				_ = os.Setenv("SIMCAST_CONFIG", path)
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})

			convey.Convey("Then a missing config file should fail to load", func() {
				clearConfigEnvVars()
				_ = os.Setenv("SIMCAST_CONFIG", "/nonexistent/config.yaml")
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"SIMCAST_CONFIG",
		"SIMCAST_ADDR",
		"SIMCAST_STORAGE",
		"SIMCAST_STORAGE_PATH",
		"SIMCAST_INGEST_QUEUE_SIZE",
		"SIMCAST_INGEST_WORKER_COUNT",
		"SIMCAST_LOG_LEVEL",
	} {
		_ = os.Unsetenv(key)
	}
}
