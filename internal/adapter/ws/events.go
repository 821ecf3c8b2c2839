package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventProposalStatus     = "proposal.status"
	EventEvaluationStage    = "evaluation.stage"
	EventEvaluationPosition = "evaluation.position"
	EventEvaluationComplete = "evaluation.complete"
	EventEvaluationError    = "evaluation.error"
)

// ProposalStatusEvent is broadcast when a proposal's lifecycle state changes.
type ProposalStatusEvent struct {
	ProposalID string `json:"proposal_id"`
	Status     string `json:"status"`
}

// StageEvent is broadcast when an evaluation pipeline stage starts or finishes.
type StageEvent struct {
	ProposalID string `json:"proposal_id"`
	Stage      string `json:"stage"`
	State      string `json:"state"` // "started" or "completed"
	Detail     string `json:"detail,omitempty"`
}

// PositionEvent is broadcast when a panelist position lands.
type PositionEvent struct {
	ProposalID     string  `json:"proposal_id"`
	PanelistID     string  `json:"panelist_id"`
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
	Round          int     `json:"round"`
}

// CompleteEvent is broadcast when the pipeline produces a decision.
type CompleteEvent struct {
	ProposalID     string `json:"proposal_id"`
	DecisionID     string `json:"decision_id"`
	Recommendation string `json:"recommendation"`
	AutoExecuted   bool   `json:"auto_executed"`
}

// ErrorEvent is broadcast when an evaluation run fails.
type ErrorEvent struct {
	ProposalID string `json:"proposal_id"`
	Error      string `json:"error"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
