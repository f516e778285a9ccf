package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/simcast/internal/adapters/repository"
	"github.com/okian/simcast/internal/domain/classify"
	"github.com/okian/simcast/internal/domain/model"
)

// stubDeps is a canned Dependencies implementation for handler tests.
type stubDeps struct {
	run         model.Run
	latestOK    bool
	tallies     []model.Tally
	projections []model.Projection
	odds        []model.GameOdds
	err         error
}

func (s *stubDeps) Run(_ context.Context, id model.RunID) (model.Run, error) {
	if s.err != nil {
		return model.Run{}, s.err
	}
	if id != s.run.ID {
		return model.Run{}, fmt.Errorf("run %d: %w", id, repository.ErrUnknownRun)
	}
	return s.run, nil
}

func (s *stubDeps) LatestRun(_ context.Context) (model.Run, bool, error) {
	return s.run, s.latestOK, s.err
}

func (s *stubDeps) TalliesFor(_ context.Context, _ model.RunID, _ model.Subject) ([]model.Tally, error) {
	return s.tallies, s.err
}

func (s *stubDeps) RunProjections(_ context.Context, _ model.RunID, _ []model.Category) ([]model.Projection, error) {
	return s.projections, s.err
}

func (s *stubDeps) CurrentProjections(_ context.Context, _ []model.Category) ([]model.Projection, error) {
	return s.projections, s.err
}

func (s *stubDeps) Margins(_ context.Context, _ model.RunID) ([]model.GameOdds, error) {
	return s.odds, s.err
}

func (s *stubDeps) RuleSet() *classify.RuleSet {
	return classify.Default()
}

func testDeps() *stubDeps {
	run := model.Run{
		ID:            7,
		Season:        2023,
		CreatedAt:     time.Date(2023, 9, 7, 12, 0, 0, 0, time.UTC),
		TrialsPerGame: 1000,
		TrialsPerTeam: 1000,
		Published:     true,
	}
	return &stubDeps{
		run:      run,
		latestOK: true,
		tallies: []model.Tally{
			{Run: run.ID, Subject: model.TeamSubject("KC"), Outcome: model.RankOutcome(model.PlayoffSeed, 1), Count: 300},
		},
		projections: []model.Projection{
			{Run: run.ID, Subject: model.TeamSubject("KC"), Category: model.DivisionWinner, Space: model.PlayoffSeed, Probability: 0.3},
		},
		odds: []model.GameOdds{
			{Run: run.ID, Subject: model.GameSubject("game-1"), HomeWin: 0.55, AwayWin: 0.40, Tie: 0.05, Margin: 0.15},
		},
	}
}

func serve(deps Dependencies, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewServer(deps).Register(context.Background(), mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/metricz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLatestRunEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/runs/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body runResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.RunID != 7 || body.Season != 2023 {
		t.Errorf("unexpected run payload: %+v", body)
	}
	if body.CreatedAt != "2023-09-07T12:00:00Z" {
		t.Errorf("expected RFC3339 created_at, got %q", body.CreatedAt)
	}

	// No published run yet.
	deps := testDeps()
	deps.latestOK = false
	rec = serve(deps, http.MethodGet, "/runs/latest")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without published runs, got %d", rec.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/runs/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown run ids map to 404.
	rec = serve(testDeps(), http.MethodGet, "/runs/99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Code != "unknown_run" {
		t.Errorf("expected code unknown_run, got %q", body.Code)
	}

	// Malformed ids are a client error.
	rec = serve(testDeps(), http.MethodGet, "/runs/seven")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestTalliesEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/runs/7/tallies?subject_kind=team&subject_id=KC")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body []tallyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body) != 1 || body[0].Outcome != "rank:playoff_seed:1" || body[0].Count != 300 {
		t.Errorf("unexpected tallies payload: %+v", body)
	}

	// The subject parameters are mandatory.
	rec = serve(testDeps(), http.MethodGet, "/runs/7/tallies?subject_kind=team")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without subject_id, got %d", rec.Code)
	}
	rec = serve(testDeps(), http.MethodGet, "/runs/7/tallies?subject_kind=player&subject_id=KC")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown subject kind, got %d", rec.Code)
	}

	// Missing tallies surface as 404.
	deps := testDeps()
	deps.err = fmt.Errorf("team: %w", repository.ErrNoTallies)
	rec = serve(deps, http.MethodGet, "/runs/7/tallies?subject_kind=team&subject_id=LV")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing tallies, got %d", rec.Code)
	}
}

func TestProjectionsEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/runs/7/projections?category=division+winner")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body []projectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body) != 1 || body[0].Category != "division winner" || body[0].Probability != 0.3 {
		t.Errorf("unexpected projections payload: %+v", body)
	}
}

func TestMarginsEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/runs/7/margins")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body []oddsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body) != 1 || body[0].GameID != "game-1" || body[0].Margin != 0.15 {
		t.Errorf("unexpected margins payload: %+v", body)
	}
}

func TestCurrentEndpoint(t *testing.T) {
	rec := serve(testDeps(), http.MethodGet, "/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body currentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Run == nil || body.Run.RunID != 7 {
		t.Errorf("expected run 7 in current payload: %+v", body)
	}
	if body.RuleSetVersion != "nfl-2023" {
		t.Errorf("expected rule set version, got %q", body.RuleSetVersion)
	}
	if len(body.Projections) != 1 {
		t.Errorf("expected one projection, got %d", len(body.Projections))
	}

	// Without a published run the projections list is empty, not an error.
	deps := testDeps()
	deps.latestOK = false
	rec = serve(deps, http.MethodGet, "/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = currentResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Run != nil {
		t.Error("expected no run in empty current payload")
	}
	if body.Projections == nil || len(body.Projections) != 0 {
		t.Errorf("expected empty projections list, got %+v", body.Projections)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	for _, target := range []string{"/healthz", "/runs/latest", "/current"} {
		rec := serve(testDeps(), http.MethodPost, target)
		if rec.Code != http.StatusNotFound {
			t.Errorf("POST %s: expected 404, got %d", target, rec.Code)
		}
	}
}
