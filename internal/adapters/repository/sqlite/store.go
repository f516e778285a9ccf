// Package sqlite provides the SQLite-backed, durable tally store.
//
// Semantics mirror the in-memory store: write-once tallies, overflow guards,
// a publish flag as the latest-run visibility barrier, and all-or-nothing
// cascading deletion (runs → tallies via foreign key, in one transaction).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/simcast/internal/adapters/repository"
	"github.com/okian/simcast/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists runs and tallies in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the run-creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the tally store at path and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// The DSN pragma is not honored by every driver revision; set it
	// explicitly so ON DELETE CASCADE works.
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateRun inserts a new, unpublished run.
func (s *Store) CreateRun(ctx context.Context, season int, trialsPerGame, trialsPerTeam uint64) (model.Run, error) {
	if trialsPerGame == 0 {
		return model.Run{}, fmt.Errorf("trials per game: %w", repository.ErrInvalidTrials)
	}
	if trialsPerTeam == 0 {
		return model.Run{}, fmt.Errorf("trials per team: %w", repository.ErrInvalidTrials)
	}

	createdAt := s.now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO runs (season, created_at, trials_per_game, trials_per_team, published)
		 VALUES (?, ?, ?, ?, 0)`,
		season, createdAt.Unix(), trialsPerGame, trialsPerTeam)
	if err != nil {
		return model.Run{}, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Run{}, fmt.Errorf("run id: %w", err)
	}
	metrics.RecordRunCreated()
	return model.Run{
		ID:            model.RunID(id),
		Season:        season,
		CreatedAt:     createdAt,
		TrialsPerGame: trialsPerGame,
		TrialsPerTeam: trialsPerTeam,
	}, nil
}

// PublishRun flips the visibility barrier for a run.
func (s *Store) PublishRun(ctx context.Context, id model.RunID) error {
	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE runs SET published = 1 WHERE run_id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("publish run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("publish run %d: %w", id, repository.ErrUnknownRun)
	}
	metrics.RecordRunPublished()
	return nil
}

// DeleteRun removes a run and cascades to its tallies in one transaction.
func (s *Store) DeleteRun(ctx context.Context, id model.RunID) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", repository.ErrDeletionFailed, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", int64(id))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: delete run %d: %v", repository.ErrDeletionFailed, id, err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", repository.ErrDeletionFailed, err)
	}
	if n > 0 {
		metrics.RecordRunDeleted()
	}
	return nil
}

// Run returns a run by id.
func (s *Store) Run(ctx context.Context, id model.RunID) (model.Run, error) {
	return s.scanRun(s.sqlDB.QueryRowContext(ctx,
		`SELECT run_id, season, created_at, trials_per_game, trials_per_team, published
		 FROM runs WHERE run_id = ?`, int64(id)), id)
}

// LatestRun returns the published run with the maximum id.
func (s *Store) LatestRun(ctx context.Context) (model.Run, bool, error) {
	run, err := s.scanRun(s.sqlDB.QueryRowContext(ctx,
		`SELECT run_id, season, created_at, trials_per_game, trials_per_team, published
		 FROM runs WHERE published = 1 ORDER BY run_id DESC LIMIT 1`), 0)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownRun) {
			return model.Run{}, false, nil
		}
		return model.Run{}, false, err
	}
	return run, true, nil
}

func (s *Store) scanRun(row *sql.Row, id model.RunID) (model.Run, error) {
	var run model.Run
	var createdAt int64
	err := row.Scan(&run.ID, &run.Season, &createdAt,
		&run.TrialsPerGame, &run.TrialsPerTeam, &run.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, fmt.Errorf("run %d: %w", id, repository.ErrUnknownRun)
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return run, nil
}

// Record writes one tally, enforcing write-once and overflow discipline.
func (s *Store) Record(ctx context.Context, t model.Tally) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if err := t.Outcome.Validate(); err != nil {
		metrics.RecordTallyRejected("invalid_outcome")
		return fmt.Errorf("record tally: %w", err)
	}
	if err := checkSubjectOutcome(t.Subject, t.Outcome); err != nil {
		metrics.RecordTallyRejected("subject_mismatch")
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record tally: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total uint64
	column := "trials_per_team"
	if t.Subject.Kind == model.KindGame {
		column = "trials_per_game"
	}
	err = tx.QueryRowContext(ctx,
		"SELECT "+column+" FROM runs WHERE run_id = ?", int64(t.Run)).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordTallyRejected("unknown_run")
		return fmt.Errorf("record tally for run %d: %w", t.Run, repository.ErrUnknownRun)
	}
	if err != nil {
		return fmt.Errorf("record tally: read trials: %w", err)
	}

	if t.Count > total {
		metrics.RecordTallyRejected("overflow")
		return fmt.Errorf("count %d > %d trials for %s %q: %w",
			t.Count, total, t.Subject.Kind, t.Subject.ID, repository.ErrTallyOverflow)
	}

	if pattern, exclusive := exclusiveGroupPattern(t.Outcome); exclusive {
		var sum uint64
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(count), 0) FROM tallies
			 WHERE run_id = ? AND subject_kind = ? AND subject_id = ? AND outcome_key LIKE ?`,
			int64(t.Run), t.Subject.Kind.String(), t.Subject.ID, pattern).Scan(&sum)
		if err != nil {
			return fmt.Errorf("record tally: sum group: %w", err)
		}
		if sum+t.Count > total {
			metrics.RecordTallyRejected("overflow")
			return fmt.Errorf("group %q sum %d+%d > %d trials: %w",
				pattern, sum, t.Count, total, repository.ErrTallyOverflow)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tallies (run_id, subject_kind, subject_id, outcome_key, count)
		 VALUES (?, ?, ?, ?, ?)`,
		int64(t.Run), t.Subject.Kind.String(), t.Subject.ID, t.Outcome.String(), t.Count)
	if err != nil {
		if isUniqueViolation(err) {
			metrics.RecordTallyRejected("duplicate")
			return fmt.Errorf("%s %q outcome %s: %w",
				t.Subject.Kind, t.Subject.ID, t.Outcome, repository.ErrDuplicateTally)
		}
		return fmt.Errorf("record tally: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record tally: commit: %w", err)
	}
	metrics.RecordTallyRecorded()
	return nil
}

// TotalTrials returns the run's trial total for a subject kind.
func (s *Store) TotalTrials(ctx context.Context, run model.RunID, kind model.SubjectKind) (uint64, error) {
	r, err := s.Run(ctx, run)
	if err != nil {
		return 0, err
	}
	return r.Trials(kind), nil
}

// TalliesFor returns a subject's tallies in insertion order.
func (s *Store) TalliesFor(ctx context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT outcome_key, count FROM tallies
		 WHERE run_id = ? AND subject_kind = ? AND subject_id = ?
		 ORDER BY tally_id`,
		int64(run), subject.Kind.String(), subject.ID)
	if err != nil {
		return nil, fmt.Errorf("query tallies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Tally
	for rows.Next() {
		var keyText string
		var count uint64
		if err := rows.Scan(&keyText, &count); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		key, err := model.ParseOutcomeKey(keyText)
		if err != nil {
			return nil, fmt.Errorf("stored outcome key: %w", err)
		}
		out = append(out, model.Tally{Run: run, Subject: subject, Outcome: key, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tallies: %w", err)
	}

	if len(out) == 0 {
		if _, err := s.Run(ctx, run); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s %q in run %d: %w",
			subject.Kind, subject.ID, run, repository.ErrNoTallies)
	}
	return out, nil
}

// Subjects returns the run's subjects of one kind in first-recorded order.
func (s *Store) Subjects(ctx context.Context, run model.RunID, kind model.SubjectKind) ([]model.Subject, error) {
	if _, err := s.Run(ctx, run); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT subject_id, MIN(tally_id) AS first_seen FROM tallies
		 WHERE run_id = ? AND subject_kind = ?
		 GROUP BY subject_id ORDER BY first_seen`,
		int64(run), kind.String())
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Subject{}
	for rows.Next() {
		var id string
		var firstSeen int64
		if err := rows.Scan(&id, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, model.Subject{Kind: kind, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// checkSubjectOutcome rejects outcome keys that make no sense for the
// subject kind: games tally game results, teams tally ranks or labels.
func checkSubjectOutcome(subject model.Subject, key model.OutcomeKey) error {
	switch subject.Kind {
	case model.KindGame:
		if key.Kind != model.OutcomeGameResult {
			return fmt.Errorf("outcome %s not valid for game subject %q", key, subject.ID)
		}
	case model.KindTeam:
		if key.Kind == model.OutcomeGameResult {
			return fmt.Errorf("outcome %s not valid for team subject %q", key, subject.ID)
		}
	default:
		return fmt.Errorf("unknown subject kind %d", subject.Kind)
	}
	return nil
}

// exclusiveGroupPattern matches the stored keys of the mutually-exclusive
// outcome group a key belongs to, if any. Labels overlap and are never
// summed.
func exclusiveGroupPattern(key model.OutcomeKey) (string, bool) {
	switch key.Kind {
	case model.OutcomeGameResult:
		return "result:%", true
	case model.OutcomeRank:
		return "rank:" + string(key.Space) + ":%", true
	default:
		return "", false
	}
}
