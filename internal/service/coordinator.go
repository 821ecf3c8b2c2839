package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opengrants/councild/internal/adapter/otel"
	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/domain/team"
	"github.com/opengrants/councild/internal/port/oracle"
)

// CoordinatorService fans a proposal out to every panelist for independent
// initial evaluation. A panelist whose oracle call fails contributes a
// placeholder position instead of failing the run: one flaky model must not
// sink the council.
type CoordinatorService struct {
	oracle    oracle.Oracle
	obs       *ObservationService
	panelists []council.Panelist
	cfg       config.Council
	metrics   *otel.Metrics
}

// NewCoordinatorService creates a CoordinatorService.
func NewCoordinatorService(o oracle.Oracle, obs *ObservationService, cfg config.Council, metrics *otel.Metrics) *CoordinatorService {
	return &CoordinatorService{
		oracle:    o,
		obs:       obs,
		panelists: cfg.Panelists,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Panelists returns the configured council.
func (s *CoordinatorService) Panelists() []council.Panelist {
	return s.panelists
}

// Evaluate collects one initial position per panelist, in panelist order.
// Workers never return errors; failures become placeholder positions.
func (s *CoordinatorService) Evaluate(ctx context.Context, p *proposal.Proposal, tc *team.Context) []council.Position {
	positions := make([]council.Position, len(s.panelists))

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.panelists {
		i := i
		g.Go(func() error {
			positions[i] = s.evaluateOne(gctx, s.panelists[i], p, tc)
			return nil
		})
	}
	_ = g.Wait()

	return positions
}

func (s *CoordinatorService) evaluateOne(ctx context.Context, pan council.Panelist, p *proposal.Proposal, tc *team.Context) council.Position {
	obs := s.obs.RetrieveFor(ctx, pan.ID, pan.Tags, s.cfg.ObservationsPerQuery)

	system, user := buildEvaluationPrompt(pan, p, tc, obs)
	resp, err := s.oracle.Ask(ctx, oracle.Request{
		Model:       pan.Model,
		Temperature: s.cfg.JudgeTemperature,
		Messages: []oracle.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}, evaluationSchema())
	if err != nil {
		slog.Error("panelist evaluation failed", "panelist_id", pan.ID, "proposal_id", p.ID, "error", err)
		if s.metrics != nil {
			s.metrics.OracleFailures.Add(ctx, 1)
		}
		return placeholderPosition(pan, p, "oracle call failed")
	}

	pos, err := parseEvaluation(resp.Content, pan, p)
	if err != nil {
		slog.Error("panelist evaluation unparseable", "panelist_id", pan.ID, "proposal_id", p.ID, "error", err)
		if s.metrics != nil {
			s.metrics.OracleFailures.Add(ctx, 1)
		}
		return placeholderPosition(pan, p, "response was not valid JSON")
	}

	pos.ObservationsUsed = observationIDs(obs)
	slog.Info("panelist position",
		"panelist_id", pan.ID,
		"proposal_id", p.ID,
		"score", pos.Score,
		"recommendation", pos.Recommendation,
		"tokens_in", resp.TokensIn,
		"tokens_out", resp.TokensOut,
	)
	return pos
}

// evalResult is the JSON shape panelists return for an evaluation.
type evalResult struct {
	Score          float64  `json:"score"`
	Confidence     float64  `json:"confidence"`
	Recommendation string   `json:"recommendation"`
	Rationale      string   `json:"rationale"`
	Strengths      []string `json:"strengths"`
	Concerns       []string `json:"concerns"`
	Questions      []string `json:"questions"`
}

func parseEvaluation(content string, pan council.Panelist, p *proposal.Proposal) (council.Position, error) {
	var res evalResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &res); err != nil {
		return council.Position{}, fmt.Errorf("parse evaluation: %w", err)
	}

	rec := council.Recommendation(res.Recommendation)
	if !rec.Valid() {
		rec = council.RecommendNeedsReview
	}

	return council.Position{
		ID:             uuid.NewString(),
		ProposalID:     p.ID,
		PanelistID:     pan.ID,
		PanelistName:   pan.Name,
		Score:          council.ClampUnit(res.Score),
		Confidence:     council.ClampUnit(res.Confidence),
		Recommendation: rec,
		Rationale:      res.Rationale,
		Strengths:      res.Strengths,
		Concerns:       res.Concerns,
		Questions:      res.Questions,
		Round:          0,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// placeholderPosition is the neutral stand-in for a panelist whose evaluation
// could not be obtained. Neutral score, zero confidence, needs_review: it
// never pushes the aggregate toward approval or rejection and always vetoes
// auto-execution via the split-recommendation and confidence rules.
func placeholderPosition(pan council.Panelist, p *proposal.Proposal, reason string) council.Position {
	return council.Position{
		ID:             uuid.NewString(),
		ProposalID:     p.ID,
		PanelistID:     pan.ID,
		PanelistName:   pan.Name,
		Score:          0.5,
		Confidence:     0,
		Recommendation: council.RecommendNeedsReview,
		Rationale:      "Evaluation unavailable: " + reason + ". This position is a neutral placeholder.",
		Round:          0,
		CreatedAt:      time.Now().UTC(),
	}
}

func observationIDs(obs []observation.Observation) []string {
	if len(obs) == 0 {
		return nil
	}
	ids := make([]string, len(obs))
	for i := range obs {
		ids[i] = obs[i].ID
	}
	return ids
}
