package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/simcast/internal/domain/model"
)

// RunsHandler handles run-scoped queries: raw tallies, projections and
// game margins for historical runs.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleRuns routes GET /runs/latest, GET /runs/{id},
// GET /runs/{id}/tallies, GET /runs/{id}/projections and
// GET /runs/{id}/margins.
func (h *RunsHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	const op = "api.runs"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/runs/")
	if path == "latest" {
		h.handleLatest(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	run := model.RunID(id)

	if len(parts) == 1 {
		h.handleRun(w, r, run)
		return
	}
	switch parts[1] {
	case "tallies":
		h.handleTallies(w, r, run)
	case "projections":
		h.handleProjections(w, r, run)
	case "margins":
		h.handleMargins(w, r, run)
	default:
		http.NotFound(w, r)
	}
}

func (h *RunsHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	run, ok, err := h.deps.LatestRun(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no_runs", nil)
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run))
}

func (h *RunsHandler) handleRun(w http.ResponseWriter, r *http.Request, id model.RunID) {
	run, err := h.deps.Run(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run))
}

func (h *RunsHandler) handleTallies(w http.ResponseWriter, r *http.Request, run model.RunID) {
	const op = "api.run_tallies"
	kind, ok := parseSubjectKind(r.URL.Query().Get("subject_kind"))
	subjectID := r.URL.Query().Get("subject_id")
	if !ok || subjectID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	tallies, err := h.deps.TalliesFor(r.Context(), run, model.Subject{Kind: kind, ID: subjectID})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]tallyResponse, len(tallies))
	for i, t := range tallies {
		out[i] = tallyResponse{
			SubjectKind: t.Subject.Kind.String(),
			SubjectID:   t.Subject.ID,
			Outcome:     t.Outcome.String(),
			Count:       t.Count,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RunsHandler) handleProjections(w http.ResponseWriter, r *http.Request, run model.RunID) {
	rows, err := h.deps.RunProjections(r.Context(), run, parseCategories(r.URL.Query().Get("category")))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]projectionResponse, len(rows))
	for i, p := range rows {
		out[i] = newProjectionResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RunsHandler) handleMargins(w http.ResponseWriter, r *http.Request, run model.RunID) {
	odds, err := h.deps.Margins(r.Context(), run)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]oddsResponse, len(odds))
	for i, o := range odds {
		out[i] = oddsResponse{
			GameID:  o.Subject.ID,
			HomeWin: o.HomeWin,
			AwayWin: o.AwayWin,
			Tie:     o.Tie,
			Margin:  o.Margin,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseSubjectKind(s string) (model.SubjectKind, bool) {
	switch s {
	case "game":
		return model.KindGame, true
	case "team":
		return model.KindTeam, true
	default:
		return 0, false
	}
}

// parseCategories splits a comma-separated category filter; empty input
// means no filter.
func parseCategories(s string) []model.Category {
	if s == "" {
		return nil
	}
	var out []model.Category
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, model.Category(part))
		}
	}
	return out
}
