// Package api declares the read-only reporting HTTP surface and route
// registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/simcast/internal/adapters/repository"
	"github.com/okian/simcast/internal/domain/classify"
	"github.com/okian/simcast/internal/domain/model"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the engine facade.
type Dependencies interface {
	Run(ctx context.Context, id model.RunID) (model.Run, error)
	LatestRun(ctx context.Context) (model.Run, bool, error)
	TalliesFor(ctx context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error)
	RunProjections(ctx context.Context, run model.RunID, filter []model.Category) ([]model.Projection, error)
	CurrentProjections(ctx context.Context, filter []model.Category) ([]model.Projection, error)
	Margins(ctx context.Context, run model.RunID) ([]model.GameOdds, error)
	RuleSet() *classify.RuleSet
}

// Server wires HTTP routes for the reporting API.
type Server struct {
	healthHandler  *HealthHandler
	runsHandler    *RunsHandler
	currentHandler *CurrentHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		runsHandler:    NewRunsHandler(deps),
		currentHandler: NewCurrentHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metricz", MetricsMiddleware(s.healthHandler.HandleMetrics, "metricz"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleRuns, "runs"))
	mux.HandleFunc("/current", MetricsMiddleware(s.currentHandler.HandleCurrent, "current"))
}

// runResponse mirrors the run read shape.
type runResponse struct {
	RunID         int64  `json:"run_id"`
	Season        int    `json:"season"`
	CreatedAt     string `json:"created_at"`
	TrialsPerGame uint64 `json:"trials_per_game"`
	TrialsPerTeam uint64 `json:"trials_per_team"`
}

func newRunResponse(run model.Run) runResponse {
	return runResponse{
		RunID:         int64(run.ID),
		Season:        run.Season,
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
		TrialsPerGame: run.TrialsPerGame,
		TrialsPerTeam: run.TrialsPerTeam,
	}
}

// tallyResponse mirrors one raw tally row.
type tallyResponse struct {
	SubjectKind string `json:"subject_kind"`
	SubjectID   string `json:"subject_id"`
	Outcome     string `json:"outcome"`
	Count       uint64 `json:"count"`
}

// projectionResponse mirrors one projection row.
type projectionResponse struct {
	RunID       int64   `json:"run_id"`
	SubjectID   string  `json:"subject_id"`
	Category    string  `json:"category"`
	RankSpace   string  `json:"rank_space,omitempty"`
	Probability float64 `json:"probability"`
}

func newProjectionResponse(p model.Projection) projectionResponse {
	return projectionResponse{
		RunID:       int64(p.Run),
		SubjectID:   p.Subject.ID,
		Category:    string(p.Category),
		RankSpace:   string(p.Space),
		Probability: p.Probability,
	}
}

// oddsResponse mirrors one game's odds and margin.
type oddsResponse struct {
	GameID  string  `json:"game_id"`
	HomeWin float64 `json:"home_win"`
	AwayWin float64 `json:"away_win"`
	Tie     float64 `json:"tie"`
	Margin  float64 `json:"margin"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError translates typed store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrUnknownRun):
		writeError(w, http.StatusNotFound, "unknown_run", err)
	case errors.Is(err, repository.ErrNoTallies):
		writeError(w, http.StatusNotFound, "no_tallies", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
