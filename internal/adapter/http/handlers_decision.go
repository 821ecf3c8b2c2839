package http

import (
	"net/http"

	"github.com/opengrants/councild/internal/domain/council"
)

// ListDecisions handles GET /api/v1/decisions.
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	list, err := h.council.ListDecisions(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, err, "decisions not found")
		return
	}
	if list == nil {
		list = []council.Decision{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetDecision handles GET /api/v1/decisions/{id}.
func (h *Handlers) GetDecision(w http.ResponseWriter, r *http.Request) {
	d, err := h.council.GetDecision(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetDecisionForProposal handles GET /api/v1/proposals/{id}/decision.
func (h *Handlers) GetDecisionForProposal(w http.ResponseWriter, r *http.Request) {
	d, err := h.council.GetDecisionForProposal(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RecordHumanDecision handles POST /api/v1/decisions/{id}/human-decision.
func (h *Handlers) RecordHumanDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[council.HumanDecisionRequest](w, r)
	if !ok {
		return
	}

	d, err := h.council.RecordHumanDecision(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
