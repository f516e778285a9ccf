package api

import (
	"net/http"
)

// CurrentHandler serves the latest published run's projections, the view a
// dashboard polls for "what do the odds look like right now".
type CurrentHandler struct {
	deps Dependencies
}

// NewCurrentHandler creates a new current-state handler.
func NewCurrentHandler(deps Dependencies) *CurrentHandler {
	return &CurrentHandler{deps: deps}
}

// currentResponse bundles the latest run with its projections and the rule
// set version that produced them.
type currentResponse struct {
	Run            *runResponse         `json:"run,omitempty"`
	RuleSetVersion string               `json:"rule_set_version"`
	Projections    []projectionResponse `json:"projections"`
}

// HandleCurrent routes GET /current. When no published run exists the
// response carries an empty projection list rather than an error.
func (h *CurrentHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	run, ok, err := h.deps.LatestRun(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := currentResponse{
		RuleSetVersion: h.deps.RuleSet().Version(),
		Projections:    []projectionResponse{},
	}
	if ok {
		rr := newRunResponse(run)
		resp.Run = &rr

		rows, err := h.deps.CurrentProjections(r.Context(), parseCategories(r.URL.Query().Get("category")))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		resp.Projections = make([]projectionResponse, len(rows))
		for i, p := range rows {
			resp.Projections[i] = newProjectionResponse(p)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
