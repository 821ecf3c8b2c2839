package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Proposals
		r.Post("/proposals", h.CreateProposal)
		r.Get("/proposals", h.ListProposals)
		r.Get("/proposals/{id}", h.GetProposal)
		r.Post("/proposals/{id}/evaluate", h.EvaluateProposal)
		r.Post("/proposals/{id}/evaluate/stream", h.EvaluateProposalStream)
		r.Get("/proposals/{id}/decision", h.GetDecisionForProposal)
		r.Post("/proposals/{id}/outcome", h.RecordOutcome)

		// Decisions
		r.Get("/decisions", h.ListDecisions)
		r.Get("/decisions/{id}", h.GetDecision)
		r.Post("/decisions/{id}/human-decision", h.RecordHumanDecision)

		// Observations
		r.Get("/observations", h.ListObservations)
		r.Post("/observations/prune", h.PruneObservations)
		r.Get("/observations/{id}", h.GetObservation)
		r.Post("/observations/{id}/activate", h.ActivateObservation)
		r.Post("/observations/{id}/helpful", h.MarkObservationHelpful)
		r.Post("/observations/{id}/deprecate", h.DeprecateObservation)

		// Teams
		r.Get("/teams/{id}", h.GetTeam)
	})
}
