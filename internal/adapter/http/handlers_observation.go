package http

import (
	"net/http"

	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/port/database"
)

// ListObservations handles GET /api/v1/observations.
func (h *Handlers) ListObservations(w http.ResponseWriter, r *http.Request) {
	f := database.ObservationFilter{
		PanelistID: r.URL.Query().Get("panelist_id"),
		Status:     observation.Status(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit", 100),
	}

	list, err := h.observations.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err, "observations not found")
		return
	}
	if list == nil {
		list = []observation.Observation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetObservation handles GET /api/v1/observations/{id}.
func (h *Handlers) GetObservation(w http.ResponseWriter, r *http.Request) {
	o, err := h.observations.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "observation not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type activateRequest struct {
	Reviewer string `json:"reviewer"`
}

// ActivateObservation handles POST /api/v1/observations/{id}/activate.
func (h *Handlers) ActivateObservation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[activateRequest](w, r)
	if !ok {
		return
	}
	if req.Reviewer == "" {
		writeError(w, http.StatusBadRequest, "reviewer is required")
		return
	}

	o, err := h.observations.Activate(r.Context(), urlParam(r, "id"), req.Reviewer)
	if err != nil {
		writeDomainError(w, err, "observation not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// MarkObservationHelpful handles POST /api/v1/observations/{id}/helpful.
func (h *Handlers) MarkObservationHelpful(w http.ResponseWriter, r *http.Request) {
	o, err := h.observations.MarkHelpful(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "observation not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeprecateObservation handles POST /api/v1/observations/{id}/deprecate.
func (h *Handlers) DeprecateObservation(w http.ResponseWriter, r *http.Request) {
	o, err := h.observations.Deprecate(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "observation not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// PruneObservations handles POST /api/v1/observations/prune. It returns the
// stale candidates; with ?apply=true they are deprecated as well.
func (h *Handlers) PruneObservations(w http.ResponseWriter, r *http.Request) {
	apply := r.URL.Query().Get("apply") == "true"

	stale, err := h.observations.PruneStale(r.Context(), apply)
	if err != nil {
		writeDomainError(w, err, "observations not found")
		return
	}
	if stale == nil {
		stale = []observation.Observation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stale_count": len(stale),
		"stale":       stale,
		"applied":     apply,
	})
}
