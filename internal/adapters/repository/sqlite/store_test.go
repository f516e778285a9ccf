package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/simcast/internal/adapters/repository"
	"github.com/okian/simcast/internal/domain/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "simcast.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestStore_OpenValidation(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty storage path")
	}
}

func TestStore_OpenReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "simcast.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	run, err := store.CreateRun(ctx, 2023, 1000, 1000)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.PublishRun(ctx, run.ID); err != nil {
		t.Fatalf("publish run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Runs survive a close-and-reopen cycle; migrations are idempotent.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = store.Close() }()

	latest, found, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if !found || latest.ID != run.ID {
		t.Errorf("expected run %d after reopen, got %d (found=%v)", run.ID, latest.ID, found)
	}
}

func TestStore_CreateRun(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	run, err := store.CreateRun(ctx, 2023, 10_000, 25_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID == 0 {
		t.Error("expected a non-zero run id")
	}
	if run.Published {
		t.Error("new runs must start unpublished")
	}

	if _, err := store.CreateRun(ctx, 2023, 0, 1); !errors.Is(err, repository.ErrInvalidTrials) {
		t.Errorf("expected ErrInvalidTrials, got %v", err)
	}

	got, err := store.Run(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Season != 2023 || got.TrialsPerGame != 10_000 || got.TrialsPerTeam != 25_000 {
		t.Errorf("run round trip mismatch: %+v", got)
	}
}

func TestStore_RecordWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	run, err := store.CreateRun(ctx, 2023, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tally := model.Tally{
		Run:     run.ID,
		Subject: model.GameSubject("game-1"),
		Outcome: model.GameOutcome(model.HomeWin),
		Count:   600,
	}
	if err := store.Record(ctx, tally); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	tally.Count = 100
	if err := store.Record(ctx, tally); !errors.Is(err, repository.ErrDuplicateTally) {
		t.Errorf("expected ErrDuplicateTally, got %v", err)
	}

	got, err := store.TalliesFor(ctx, run.ID, model.GameSubject("game-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Count != 600 {
		t.Errorf("expected single tally with count 600, got %+v", got)
	}
}

func TestStore_RecordOverflow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	run, err := store.CreateRun(ctx, 2023, 1000, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.GameSubject("game-1"),
		Outcome: model.GameOutcome(model.HomeWin),
		Count:   1001,
	}); !errors.Is(err, repository.ErrTallyOverflow) {
		t.Errorf("expected ErrTallyOverflow for oversized count, got %v", err)
	}

	steps := []struct {
		result model.GameResult
		count  uint64
		want   error
	}{
		{model.HomeWin, 600, nil},
		{model.AwayWin, 399, nil},
		{model.Tie, 2, repository.ErrTallyOverflow},
	}
	for _, step := range steps {
		err := store.Record(ctx, model.Tally{
			Run:     run.ID,
			Subject: model.GameSubject("game-2"),
			Outcome: model.GameOutcome(step.result),
			Count:   step.count,
		})
		if !errors.Is(err, step.want) {
			t.Errorf("result %q count %d: expected %v, got %v", step.result, step.count, step.want, err)
		}
	}

	// Rank spaces are independent groups.
	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.TeamSubject("KC"),
		Outcome: model.RankOutcome(model.PlayoffSeed, 1),
		Count:   500,
	}); err != nil {
		t.Fatalf("filling playoff_seed group failed: %v", err)
	}
	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.TeamSubject("KC"),
		Outcome: model.RankOutcome(model.DraftPosition, 1),
		Count:   500,
	}); err != nil {
		t.Errorf("draft_position group should be independent, got %v", err)
	}
	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.TeamSubject("KC"),
		Outcome: model.RankOutcome(model.PlayoffSeed, 2),
		Count:   1,
	}); !errors.Is(err, repository.ErrTallyOverflow) {
		t.Errorf("expected ErrTallyOverflow on full playoff_seed group, got %v", err)
	}

	if err := store.Record(ctx, model.Tally{
		Run:     999,
		Subject: model.GameSubject("game-1"),
		Outcome: model.GameOutcome(model.HomeWin),
		Count:   1,
	}); !errors.Is(err, repository.ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun, got %v", err)
	}
}

func TestStore_TalliesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	run, err := store.CreateRun(ctx, 2023, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcomes := []model.OutcomeKey{
		model.RankOutcome(model.PlayoffSeed, 1),
		model.RankOutcome(model.DraftPosition, 10),
		model.LabelOutcome(model.DivisionWinner),
	}
	for i, outcome := range outcomes {
		if err := store.Record(ctx, model.Tally{
			Run:     run.ID,
			Subject: model.TeamSubject("KC"),
			Outcome: outcome,
			Count:   uint64(100 * (i + 1)),
		}); err != nil {
			t.Fatalf("record %s: %v", outcome, err)
		}
	}

	got, err := store.TalliesFor(ctx, run.ID, model.TeamSubject("KC"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(outcomes) {
		t.Fatalf("expected %d tallies, got %d", len(outcomes), len(got))
	}
	for i, outcome := range outcomes {
		if got[i].Outcome != outcome {
			t.Errorf("tally %d: expected outcome %s, got %s", i, outcome, got[i].Outcome)
		}
		if got[i].Count != uint64(100*(i+1)) {
			t.Errorf("tally %d: expected count %d, got %d", i, 100*(i+1), got[i].Count)
		}
	}

	// Missing subject vs missing run are distinct errors.
	if _, err := store.TalliesFor(ctx, run.ID, model.TeamSubject("LV")); !errors.Is(err, repository.ErrNoTallies) {
		t.Errorf("expected ErrNoTallies, got %v", err)
	}
	if _, err := store.TalliesFor(ctx, 999, model.TeamSubject("KC")); !errors.Is(err, repository.ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun, got %v", err)
	}
}

func TestStore_LatestRunVisibility(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, found, err := store.LatestRun(ctx); err != nil || found {
		t.Fatalf("expected no latest run on empty store, got found=%v err=%v", found, err)
	}

	first, _ := store.CreateRun(ctx, 2023, 100, 100)
	second, _ := store.CreateRun(ctx, 2023, 100, 100)

	if _, found, _ := store.LatestRun(ctx); found {
		t.Error("unpublished runs must not be visible as latest")
	}

	if err := store.PublishRun(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, found, _ := store.LatestRun(ctx)
	if !found || latest.ID != first.ID {
		t.Errorf("expected latest %d, got %d (found=%v)", first.ID, latest.ID, found)
	}

	if err := store.PublishRun(ctx, second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, _, _ = store.LatestRun(ctx)
	if latest.ID != second.ID {
		t.Errorf("expected latest %d, got %d", second.ID, latest.ID)
	}

	if err := store.PublishRun(ctx, 999); !errors.Is(err, repository.ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun, got %v", err)
	}
}

func TestStore_DeleteRunCascade(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	run, _ := store.CreateRun(ctx, 2023, 1000, 1000)

	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.GameSubject("game-1"),
		Outcome: model.GameOutcome(model.HomeWin),
		Count:   500,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.Run(ctx, run.ID); !errors.Is(err, repository.ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun after delete, got %v", err)
	}
	if _, err := store.TalliesFor(ctx, run.ID, model.GameSubject("game-1")); !errors.Is(err, repository.ErrUnknownRun) {
		t.Errorf("expected ErrUnknownRun for tallies after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestStore_SubjectsOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	run, _ := store.CreateRun(ctx, 2023, 1000, 1000)

	teams := []string{"KC", "BUF", "DEN"}
	for _, team := range teams {
		if err := store.Record(ctx, model.Tally{
			Run:     run.ID,
			Subject: model.TeamSubject(team),
			Outcome: model.RankOutcome(model.PlayoffSeed, 1),
			Count:   10,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// A second tally for the first team must not reorder subjects.
	if err := store.Record(ctx, model.Tally{
		Run:     run.ID,
		Subject: model.TeamSubject("KC"),
		Outcome: model.RankOutcome(model.PlayoffSeed, 2),
		Count:   10,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subjects, err := store.Subjects(ctx, run.ID, model.KindTeam)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subjects) != len(teams) {
		t.Fatalf("expected %d subjects, got %d", len(teams), len(subjects))
	}
	for i, team := range teams {
		if subjects[i].ID != team {
			t.Errorf("expected subject %d to be %s, got %s", i, team, subjects[i].ID)
		}
	}

	games, err := store.Subjects(ctx, run.ID, model.KindGame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("expected no game subjects, got %d", len(games))
	}
}

func TestStore_WithClock(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2023, 9, 7, 12, 0, 0, 0, time.UTC)
	store, err := Open(filepath.Join(t.TempDir(), "simcast.db"),
		WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	run, err := store.CreateRun(ctx, 2023, 100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Run(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("expected created_at %v, got %v", fixed, got.CreatedAt)
	}
}
