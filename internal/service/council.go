// Package service implements the council business logic on top of the domain
// model and the ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opengrants/councild/internal/adapter/otel"
	"github.com/opengrants/councild/internal/adapter/ws"
	"github.com/opengrants/councild/internal/domain"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/database"
	"github.com/opengrants/councild/internal/port/messagequeue"
)

// Pipeline stage names used in progress events.
const (
	StagePanelEvaluation = "panel_evaluation"
	StageDeliberation    = "deliberation"
	StageAggregation     = "aggregation"
	StageSynthesis       = "synthesis"
)

// StreamEvent is one progress event of a streaming evaluation run.
type StreamEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// CouncilService orchestrates the evaluation pipeline and the human decision
// gate. At most one evaluation runs per proposal at a time.
type CouncilService struct {
	store        database.Store
	coordinator  *CoordinatorService
	deliberation *DeliberationService
	synthesis    *SynthesisService
	teams        *TeamService
	learning     *LearningService
	queue        messagequeue.Queue
	hub          *ws.Hub
	routing      council.RoutingPolicy
	metrics      *otel.Metrics

	mu      sync.Mutex
	running map[string]struct{}
}

// NewCouncilService creates a CouncilService. queue, hub and metrics may be
// nil; the pipeline degrades to running without them.
func NewCouncilService(
	store database.Store,
	coordinator *CoordinatorService,
	deliberation *DeliberationService,
	synthesis *SynthesisService,
	teams *TeamService,
	learning *LearningService,
	queue messagequeue.Queue,
	hub *ws.Hub,
	routing council.RoutingPolicy,
	metrics *otel.Metrics,
) *CouncilService {
	return &CouncilService{
		store:        store,
		coordinator:  coordinator,
		deliberation: deliberation,
		synthesis:    synthesis,
		teams:        teams,
		learning:     learning,
		queue:        queue,
		hub:          hub,
		routing:      routing,
		metrics:      metrics,
		running:      make(map[string]struct{}),
	}
}

// RunEvaluation runs the full pipeline for a pending proposal and returns the
// stored decision.
func (s *CouncilService) RunEvaluation(ctx context.Context, proposalID string) (*council.Decision, error) {
	if err := s.acquire(proposalID); err != nil {
		return nil, err
	}
	defer s.release(proposalID)

	return s.run(ctx, proposalID, nil)
}

// RunEvaluationStream starts the pipeline in the background and returns a
// channel of progress events. The run lock and the proposal state are checked
// before this returns, so callers can report conflicts synchronously. The run
// itself is detached from ctx; ctx only governs event delivery, and events
// are dropped once it is done.
func (s *CouncilService) RunEvaluationStream(ctx context.Context, proposalID string) (<-chan StreamEvent, error) {
	if err := s.acquire(proposalID); err != nil {
		return nil, err
	}

	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		s.release(proposalID)
		return nil, err
	}
	if p.Status != proposal.StatusPending {
		s.release(proposalID)
		return nil, fmt.Errorf("proposal %s is %s, not pending: %w", proposalID, p.Status, domain.ErrConflict)
	}

	events := make(chan StreamEvent, 16)
	emit := func(ev StreamEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer s.release(proposalID)
		defer close(events)

		runCtx := context.WithoutCancel(ctx)
		d, err := s.run(runCtx, proposalID, emit)
		if err != nil {
			emit(StreamEvent{Type: ws.EventEvaluationError, Payload: ws.ErrorEvent{
				ProposalID: proposalID,
				Error:      err.Error(),
			}})
			return
		}
		emit(StreamEvent{Type: ws.EventEvaluationComplete, Payload: ws.CompleteEvent{
			ProposalID:     proposalID,
			DecisionID:     d.ID,
			Recommendation: string(d.Recommendation),
			AutoExecuted:   d.AutoExecuted,
		}})
	}()

	return events, nil
}

// run executes the pipeline. emit may be nil. The caller holds the run lock.
func (s *CouncilService) run(ctx context.Context, proposalID string, emit func(StreamEvent)) (*council.Decision, error) {
	started := time.Now()
	if s.metrics != nil {
		s.metrics.EvaluationsStarted.Add(ctx, 1)
	}

	d, err := s.pipeline(ctx, proposalID, emit)
	if err != nil {
		if s.metrics != nil {
			s.metrics.EvaluationsFailed.Add(ctx, 1)
		}
		s.broadcast(ctx, ws.EventEvaluationError, ws.ErrorEvent{ProposalID: proposalID, Error: err.Error()})
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EvaluationsCompleted.Add(ctx, 1)
		s.metrics.EvaluationDuration.Record(ctx, time.Since(started).Seconds())
	}
	return d, nil
}

func (s *CouncilService) pipeline(ctx context.Context, proposalID string, emit func(StreamEvent)) (*council.Decision, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != proposal.StatusPending {
		return nil, fmt.Errorf("proposal %s is %s, not pending: %w", proposalID, p.Status, domain.ErrConflict)
	}

	if err := s.transition(ctx, p, proposal.StatusEvaluating, emit); err != nil {
		return nil, err
	}

	tc, err := s.teams.ContextFor(ctx, p)
	if err != nil {
		// Evaluate without reputation context rather than fail the run.
		slog.Error("team context lookup failed", "proposal_id", p.ID, "error", err)
		tc = nil
	}

	s.stage(ctx, emit, p.ID, StagePanelEvaluation, "started", "")
	positions := s.coordinator.Evaluate(ctx, p, tc)
	for i := range positions {
		s.emitPosition(ctx, emit, &positions[i])
	}
	s.stage(ctx, emit, p.ID, StagePanelEvaluation, "completed", fmt.Sprintf("%d positions", len(positions)))

	if err := s.transition(ctx, p, proposal.StatusDeliberating, emit); err != nil {
		return nil, err
	}

	s.stage(ctx, emit, p.ID, StageDeliberation, "started", "")
	positions, rounds := s.deliberation.Deliberate(ctx, p, positions)
	s.stage(ctx, emit, p.ID, StageDeliberation, "completed", fmt.Sprintf("%d rounds", rounds))

	s.stage(ctx, emit, p.ID, StageAggregation, "started", "")
	agg := council.AggregatePositions(positions)
	routing := s.routing.Route(agg, p.FundingRequested)
	s.stage(ctx, emit, p.ID, StageAggregation, "completed", string(routing.Recommendation))

	s.stage(ctx, emit, p.ID, StageSynthesis, "started", "")
	synthesis := s.synthesis.Synthesize(ctx, p, positions, agg)
	feedback := s.synthesis.ApplicantFeedback(ctx, p, positions)
	s.stage(ctx, emit, p.ID, StageSynthesis, "completed", "")

	d := &council.Decision{
		ProposalID:          p.ID,
		AverageScore:        agg.AverageScore,
		AverageConfidence:   agg.AverageConfidence,
		ScoreVariance:       agg.ScoreVariance,
		Recommendation:      routing.Recommendation,
		Positions:           positions,
		AutoExecuted:        routing.AutoExecute,
		RequiresHumanReview: !routing.AutoExecute,
		ReviewReasons:       routing.ReviewReasons,
		Synthesis:           synthesis,
		ApplicantFeedback:   feedback,
	}
	if err := s.store.CreateDecision(ctx, d); err != nil {
		return nil, err
	}

	final := proposal.StatusNeedsReview
	if routing.AutoExecute {
		switch routing.Recommendation {
		case council.RecommendApprove:
			final = proposal.StatusAutoApproved
		case council.RecommendReject:
			final = proposal.StatusAutoRejected
		}
	}
	if err := s.transition(ctx, p, final, emit); err != nil {
		return nil, err
	}

	slog.Info("evaluation complete",
		"proposal_id", p.ID,
		"decision_id", d.ID,
		"recommendation", d.Recommendation,
		"average_score", d.AverageScore,
		"auto_executed", d.AutoExecuted,
		"review_reasons", len(d.ReviewReasons),
	)
	s.broadcast(ctx, ws.EventEvaluationComplete, ws.CompleteEvent{
		ProposalID:     p.ID,
		DecisionID:     d.ID,
		Recommendation: string(d.Recommendation),
		AutoExecuted:   d.AutoExecuted,
	})
	return d, nil
}

// GetDecision retrieves a decision by ID.
func (s *CouncilService) GetDecision(ctx context.Context, id string) (*council.Decision, error) {
	return s.store.GetDecision(ctx, id)
}

// GetDecisionForProposal retrieves the latest decision for a proposal.
func (s *CouncilService) GetDecisionForProposal(ctx context.Context, proposalID string) (*council.Decision, error) {
	return s.store.GetDecisionForProposal(ctx, proposalID)
}

// ListDecisions returns decisions newest first.
func (s *CouncilService) ListDecisions(ctx context.Context, limit int) ([]council.Decision, error) {
	return s.store.ListDecisions(ctx, limit)
}

// RecordHumanDecision applies a human ruling to a decision. Overrides publish
// a learning task; publish failures are logged, never surfaced, so learning
// can never block a ruling.
func (s *CouncilService) RecordHumanDecision(ctx context.Context, decisionID string, req council.HumanDecisionRequest) (*council.Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalid)
	}

	d, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if d.DecidedAt != nil {
		return nil, fmt.Errorf("decision %s already ruled on: %w", decisionID, domain.ErrConflict)
	}

	p, err := s.store.GetProposal(ctx, d.ProposalID)
	if err != nil {
		return nil, err
	}

	final := proposal.StatusApproved
	if req.Decision == council.RecommendReject {
		final = proposal.StatusRejected
	}
	if !p.Status.CanTransition(final) {
		return nil, fmt.Errorf("proposal %s is %s, cannot move to %s: %w", p.ID, p.Status, final, domain.ErrConflict)
	}

	now := time.Now().UTC()
	d.HumanDecision = req.Decision
	d.HumanRationale = req.Rationale
	d.HumanReviewer = req.Reviewer
	d.DecidedAt = &now

	if err := s.store.UpdateDecisionHuman(ctx, d); err != nil {
		return nil, err
	}
	if err := s.updateStatus(ctx, p, final); err != nil {
		return nil, err
	}

	slog.Info("human decision recorded",
		"decision_id", d.ID,
		"proposal_id", p.ID,
		"ruling", req.Decision,
		"reviewer", req.Reviewer,
		"override", d.IsOverride(req.Decision),
	)

	if d.IsOverride(req.Decision) {
		s.publishLearning(ctx, messagequeue.SubjectLearningOverride, messagequeue.OverrideTask{
			DecisionID:     d.ID,
			HumanDecision:  string(req.Decision),
			HumanRationale: req.Rationale,
		})
	}
	return d, nil
}

// RecordOutcome records a funded proposal's real-world outcome, runs the
// outcome reflection across every panelist and returns the drafted
// observations.
func (s *CouncilService) RecordOutcome(ctx context.Context, proposalID string, outcome proposal.Outcome, notes string) ([]observation.Observation, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("outcome must be success or failure: %w", domain.ErrInvalid)
	}

	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status != proposal.StatusApproved && p.Status != proposal.StatusAutoApproved {
		return nil, fmt.Errorf("proposal %s is %s, outcomes apply to funded proposals: %w", p.ID, p.Status, domain.ErrConflict)
	}

	drafts, err := s.learning.ReflectOnOutcome(ctx, proposalID, outcome, notes)
	if err != nil {
		return nil, err
	}
	slog.Info("outcome recorded", "proposal_id", proposalID, "outcome", outcome, "drafts", len(drafts))
	return drafts, nil
}

func (s *CouncilService) publishLearning(ctx context.Context, subject string, task any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		slog.Error("learning task marshal failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("learning task publish failed", "subject", subject, "error", err)
	}
}

func (s *CouncilService) transition(ctx context.Context, p *proposal.Proposal, next proposal.Status, emit func(StreamEvent)) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s: %w", p.Status, next, domain.ErrConflict)
	}
	if err := s.updateStatus(ctx, p, next); err != nil {
		return err
	}
	if emit != nil {
		emit(StreamEvent{Type: ws.EventProposalStatus, Payload: ws.ProposalStatusEvent{
			ProposalID: p.ID,
			Status:     string(next),
		}})
	}
	return nil
}

func (s *CouncilService) updateStatus(ctx context.Context, p *proposal.Proposal, next proposal.Status) error {
	if err := s.store.UpdateProposalStatus(ctx, p.ID, next); err != nil {
		return err
	}
	p.Status = next
	s.broadcast(ctx, ws.EventProposalStatus, ws.ProposalStatusEvent{
		ProposalID: p.ID,
		Status:     string(next),
	})
	return nil
}

func (s *CouncilService) stage(ctx context.Context, emit func(StreamEvent), proposalID, stage, state, detail string) {
	ev := ws.StageEvent{ProposalID: proposalID, Stage: stage, State: state, Detail: detail}
	s.broadcast(ctx, ws.EventEvaluationStage, ev)
	if emit != nil {
		emit(StreamEvent{Type: ws.EventEvaluationStage, Payload: ev})
	}
}

func (s *CouncilService) emitPosition(ctx context.Context, emit func(StreamEvent), pos *council.Position) {
	ev := ws.PositionEvent{
		ProposalID:     pos.ProposalID,
		PanelistID:     pos.PanelistID,
		Score:          pos.Score,
		Recommendation: string(pos.Recommendation),
		Round:          pos.Round,
	}
	s.broadcast(ctx, ws.EventEvaluationPosition, ev)
	if emit != nil {
		emit(StreamEvent{Type: ws.EventEvaluationPosition, Payload: ev})
	}
}

func (s *CouncilService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

// acquire takes the per-proposal run lock.
func (s *CouncilService) acquire(proposalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[proposalID]; busy {
		return fmt.Errorf("proposal %s: %w", proposalID, domain.ErrEvaluationActive)
	}
	s.running[proposalID] = struct{}{}
	return nil
}

func (s *CouncilService) release(proposalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, proposalID)
}
