package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/database"
)

// CreateProposal handles POST /api/v1/proposals.
func (h *Handlers) CreateProposal(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[proposal.CreateRequest](w, r)
	if !ok {
		return
	}

	p, err := h.proposals.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "proposal not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListProposals handles GET /api/v1/proposals.
func (h *Handlers) ListProposals(w http.ResponseWriter, r *http.Request) {
	f := database.ProposalFilter{
		Status: proposal.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
	}

	list, err := h.proposals.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err, "proposals not found")
		return
	}
	if list == nil {
		list = []proposal.Proposal{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetProposal handles GET /api/v1/proposals/{id}.
func (h *Handlers) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.proposals.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "proposal not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// EvaluateProposal handles POST /api/v1/proposals/{id}/evaluate. It blocks
// until the pipeline finishes and returns the decision.
func (h *Handlers) EvaluateProposal(w http.ResponseWriter, r *http.Request) {
	d, err := h.council.RunEvaluation(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "proposal not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// EvaluateProposalStream handles POST /api/v1/proposals/{id}/evaluate/stream.
// It runs the pipeline while streaming progress events over SSE. The run
// continues even if the client disconnects mid-stream.
func (h *Handlers) EvaluateProposalStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.council.RunEvaluationStream(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "proposal not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			slog.Error("sse event marshal failed", "type", ev.Type, "error", err)
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}
}

type outcomeRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

// RecordOutcome handles POST /api/v1/proposals/{id}/outcome. The response
// carries the draft observations the reflection produced.
func (h *Handlers) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[outcomeRequest](w, r)
	if !ok {
		return
	}

	drafts, err := h.council.RecordOutcome(r.Context(), urlParam(r, "id"), proposal.Outcome(req.Outcome), req.Notes)
	if err != nil {
		writeDomainError(w, err, "proposal not found")
		return
	}
	if drafts == nil {
		drafts = []observation.Observation{}
	}
	writeJSON(w, http.StatusOK, drafts)
}
