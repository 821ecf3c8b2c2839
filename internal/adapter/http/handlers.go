package http

import (
	"net/http"

	"github.com/opengrants/councild/internal/adapter/ws"
	"github.com/opengrants/councild/internal/port/messagequeue"
	"github.com/opengrants/councild/internal/service"
)

// Handlers bundles the services the HTTP surface exposes.
type Handlers struct {
	proposals    *service.ProposalService
	council      *service.CouncilService
	observations *service.ObservationService
	teams        *service.TeamService
	queue        messagequeue.Queue
	hub          *ws.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(
	proposals *service.ProposalService,
	council *service.CouncilService,
	observations *service.ObservationService,
	teams *service.TeamService,
	queue messagequeue.Queue,
	hub *ws.Hub,
) *Handlers {
	return &Handlers{
		proposals:    proposals,
		council:      council,
		observations: observations,
		teams:        teams,
		queue:        queue,
		hub:          hub,
	}
}

// Health reports liveness and dependency status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":        "ok",
		"ws_clients":    h.hub.ConnectionCount(),
		"nats_connected": h.queue != nil && h.queue.IsConnected(),
	}
	writeJSON(w, http.StatusOK, status)
}

// GetTeam returns a team profile.
func (h *Handlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.teams.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "team not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
