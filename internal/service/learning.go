package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opengrants/councild/internal/adapter/otel"
	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/database"
	"github.com/opengrants/councild/internal/port/messagequeue"
	"github.com/opengrants/councild/internal/port/oracle"
)

// LearningService turns correction signals (human overrides, real-world
// outcomes) into draft observations. It consumes queue tasks published by the
// decision path, so reflection latency never touches a request. Drafts feed
// nothing until a human activates them.
type LearningService struct {
	store     database.Store
	oracle    oracle.Oracle
	panelists []council.Panelist
	cfg       config.Learning
	metrics   *otel.Metrics
}

// NewLearningService creates a LearningService.
func NewLearningService(store database.Store, o oracle.Oracle, panelists []council.Panelist, cfg config.Learning, metrics *otel.Metrics) *LearningService {
	return &LearningService{
		store:     store,
		oracle:    o,
		panelists: panelists,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Subscribe registers the override reflection handler on the queue. The
// returned function cancels the subscription. Outcome reflection is not queue
// driven; RecordOutcome runs it inline and returns the drafts.
func (s *LearningService) Subscribe(ctx context.Context, q messagequeue.Queue) (func(), error) {
	stop, err := q.Subscribe(ctx, messagequeue.SubjectLearningOverride, s.HandleOverrideTask)
	if err != nil {
		return nil, fmt.Errorf("subscribe override tasks: %w", err)
	}
	return stop, nil
}

// HandleOverrideTask reflects on a human override. Each panelist whose final
// recommendation contradicted the human ruling produces one draft observation.
func (s *LearningService) HandleOverrideTask(ctx context.Context, _ string, data []byte) error {
	var task messagequeue.OverrideTask
	if err := json.Unmarshal(data, &task); err != nil {
		return fmt.Errorf("decode override task: %w", err)
	}

	d, err := s.store.GetDecision(ctx, task.DecisionID)
	if err != nil {
		return fmt.Errorf("override reflection: %w", err)
	}
	p, err := s.store.GetProposal(ctx, d.ProposalID)
	if err != nil {
		return fmt.Errorf("override reflection: %w", err)
	}

	human := council.Recommendation(task.HumanDecision)
	drafted := 0
	for i := range d.Positions {
		pos := &d.Positions[i]
		if pos.Recommendation == human {
			continue
		}
		pan, ok := s.panelistByID(pos.PanelistID)
		if !ok {
			continue
		}
		system, user := buildOverrideReflectionPrompt(pan, p, pos, human, task.HumanRationale)
		if s.reflect(ctx, pan, p.ID, system, user) != nil {
			drafted++
		}
	}

	slog.Info("override reflection complete",
		"decision_id", d.ID, "proposal_id", p.ID, "drafts", drafted)
	return nil
}

// ReflectOnOutcome reflects every panelist against a recorded real-world
// outcome and returns the drafted observations. Panelists aligned with the
// outcome reinforce what they read correctly; the rest correct what they
// missed. A failed reflection skips only that panelist.
func (s *LearningService) ReflectOnOutcome(ctx context.Context, proposalID string, outcome proposal.Outcome, notes string) ([]observation.Observation, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("outcome reflection: %w", err)
	}
	d, err := s.store.GetDecisionForProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("outcome reflection: %w", err)
	}

	var drafts []observation.Observation
	for i := range d.Positions {
		pos := &d.Positions[i]
		pan, ok := s.panelistByID(pos.PanelistID)
		if !ok {
			continue
		}
		system, user := buildOutcomeReflectionPrompt(pan, p, pos, outcome, notes, aligned(pos.Recommendation, outcome))
		if o := s.reflect(ctx, pan, p.ID, system, user); o != nil {
			drafts = append(drafts, *o)
		}
	}

	slog.Info("outcome reflection complete",
		"proposal_id", p.ID, "outcome", outcome, "drafts", len(drafts))
	return drafts, nil
}

// aligned reports whether a recommendation pointed the way the outcome went.
// needs_review positions carry no direction and are never aligned.
func aligned(rec council.Recommendation, outcome proposal.Outcome) bool {
	switch outcome {
	case proposal.OutcomeSuccess:
		return rec == council.RecommendApprove
	case proposal.OutcomeFailure:
		return rec == council.RecommendReject
	}
	return false
}

// reflectResult is the JSON shape panelists return for a reflection.
type reflectResult struct {
	Pattern    string   `json:"pattern"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// reflect runs one reflection call and stores the resulting draft, returning
// it, or nil when the reflection failed. Failures are logged and dropped; a
// lost draft only costs a learning opportunity.
func (s *LearningService) reflect(ctx context.Context, pan council.Panelist, proposalID, system, user string) *observation.Observation {
	resp, err := s.oracle.Ask(ctx, oracle.Request{
		Model:       pan.Model,
		Temperature: s.cfg.ReflectTemperature,
		Messages: []oracle.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}, reflectionSchema())
	if err != nil {
		slog.Error("reflection failed", "panelist_id", pan.ID, "proposal_id", proposalID, "error", err)
		return nil
	}

	var res reflectResult
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &res); err != nil {
		slog.Error("reflection unparseable", "panelist_id", pan.ID, "proposal_id", proposalID, "error", err)
		return nil
	}
	if res.Pattern == "" {
		return nil
	}

	o := &observation.Observation{
		PanelistID: pan.ID,
		Pattern:    res.Pattern,
		Evidence:   []string{proposalID},
		Tags:       res.Tags,
		Confidence: council.ClampUnit(res.Confidence),
		Status:     observation.StatusDraft,
	}
	if err := s.store.CreateObservation(ctx, o); err != nil {
		slog.Error("draft observation store failed", "panelist_id", pan.ID, "error", err)
		return nil
	}

	if s.metrics != nil {
		s.metrics.ObservationsDrafted.Add(ctx, 1)
	}
	slog.Info("draft observation created",
		"observation_id", o.ID, "panelist_id", pan.ID, "proposal_id", proposalID)
	return o
}

func (s *LearningService) panelistByID(id string) (council.Panelist, bool) {
	for _, pan := range s.panelists {
		if pan.ID == id {
			return pan, true
		}
	}
	return council.Panelist{}, false
}
