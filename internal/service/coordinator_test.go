package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/oracle"
	"github.com/opengrants/councild/internal/service"
)

func testCouncilConfig() config.Council {
	cfg := config.Defaults().Council
	cfg.Panelists = council.DefaultPanelists()
	return cfg
}

func testProposal() *proposal.Proposal {
	return &proposal.Proposal{
		ID:               "prop-1",
		Title:            "Cross-chain indexer",
		TeamName:         "Acme Labs",
		FundingRequested: 20000,
		FundingCurrency:  "USD",
		Status:           proposal.StatusPending,
	}
}

const goodEvaluation = `{"score": 0.8, "confidence": 0.9, "recommendation": "approve",
	"rationale": "solid plan", "strengths": ["clear milestones"], "concerns": [], "questions": []}`

func TestCoordinator_OnePositionPerPanelist(t *testing.T) {
	store := newMockStore()
	obsSvc := service.NewObservationService(store, observation.DefaultPruneRule())
	o := &mockOracle{ask: func(oracle.Request, map[string]string) (string, error) {
		return goodEvaluation, nil
	}}

	cfg := testCouncilConfig()
	coord := service.NewCoordinatorService(o, obsSvc, cfg, nil)

	positions := coord.Evaluate(context.Background(), testProposal(), nil)
	if len(positions) != len(cfg.Panelists) {
		t.Fatalf("positions = %d, want %d", len(positions), len(cfg.Panelists))
	}

	seen := map[string]bool{}
	for i, pos := range positions {
		if pos.PanelistID != cfg.Panelists[i].ID {
			t.Errorf("position %d from %s, want %s (panelist order)", i, pos.PanelistID, cfg.Panelists[i].ID)
		}
		if seen[pos.PanelistID] {
			t.Errorf("duplicate position for panelist %s", pos.PanelistID)
		}
		seen[pos.PanelistID] = true
		if pos.Score != 0.8 || pos.Recommendation != council.RecommendApprove {
			t.Errorf("position %d = %v/%s", i, pos.Score, pos.Recommendation)
		}
	}
}

func TestCoordinator_FailuresBecomePlaceholders(t *testing.T) {
	store := newMockStore()
	obsSvc := service.NewObservationService(store, observation.DefaultPruneRule())

	// The budget panelist's model is down; everyone else answers.
	o := &mockOracle{ask: func(req oracle.Request, _ map[string]string) (string, error) {
		if strings.Contains(req.Messages[0].Content, "Budget Reasonableness") {
			return "", errors.New("model unavailable")
		}
		return goodEvaluation, nil
	}}

	cfg := testCouncilConfig()
	coord := service.NewCoordinatorService(o, obsSvc, cfg, nil)

	positions := coord.Evaluate(context.Background(), testProposal(), nil)
	if len(positions) != len(cfg.Panelists) {
		t.Fatalf("positions = %d, want %d even with a failure", len(positions), len(cfg.Panelists))
	}

	var placeholder *council.Position
	for i := range positions {
		if positions[i].PanelistID == "budget" {
			placeholder = &positions[i]
		}
	}
	if placeholder == nil {
		t.Fatal("budget panelist has no position")
	}
	if placeholder.Score != 0.5 || placeholder.Confidence != 0 {
		t.Errorf("placeholder score/confidence = %v/%v, want 0.5/0", placeholder.Score, placeholder.Confidence)
	}
	if placeholder.Recommendation != council.RecommendNeedsReview {
		t.Errorf("placeholder recommendation = %s, want needs_review", placeholder.Recommendation)
	}
	if !strings.Contains(placeholder.Rationale, "Evaluation unavailable") {
		t.Errorf("placeholder rationale = %q", placeholder.Rationale)
	}
}

func TestCoordinator_UnparseableResponseBecomesPlaceholder(t *testing.T) {
	store := newMockStore()
	obsSvc := service.NewObservationService(store, observation.DefaultPruneRule())
	o := &mockOracle{ask: func(oracle.Request, map[string]string) (string, error) {
		return "I think this proposal is quite good overall.", nil
	}}

	coord := service.NewCoordinatorService(o, obsSvc, testCouncilConfig(), nil)
	positions := coord.Evaluate(context.Background(), testProposal(), nil)
	for _, pos := range positions {
		if pos.Score != 0.5 || pos.Confidence != 0 {
			t.Errorf("panelist %s: non-JSON answer should yield a placeholder, got %v/%v",
				pos.PanelistID, pos.Score, pos.Confidence)
		}
	}
}

func TestCoordinator_ScoresClamped(t *testing.T) {
	store := newMockStore()
	obsSvc := service.NewObservationService(store, observation.DefaultPruneRule())
	o := &mockOracle{ask: func(oracle.Request, map[string]string) (string, error) {
		return `{"score": 1.7, "confidence": -0.3, "recommendation": "approve", "rationale": "x"}`, nil
	}}

	coord := service.NewCoordinatorService(o, obsSvc, testCouncilConfig(), nil)
	positions := coord.Evaluate(context.Background(), testProposal(), nil)
	for _, pos := range positions {
		if pos.Score != 1 || pos.Confidence != 0 {
			t.Errorf("panelist %s: score/confidence = %v/%v, want clamped 1/0",
				pos.PanelistID, pos.Score, pos.Confidence)
		}
	}
}

func TestCoordinator_ObservationsRetrievedAndCounted(t *testing.T) {
	store := newMockStore()
	active := &observation.Observation{
		ID:         "obs-1",
		PanelistID: "technical",
		Pattern:    "Teams without a public repo overrun timelines",
		Evidence:   []string{"p1", "p2", "p3", "p4", "p5"},
		Tags:       []string{"technical"},
		Confidence: 0.9,
		Status:     observation.StatusActive,
	}
	draft := &observation.Observation{
		ID:         "obs-2",
		PanelistID: "technical",
		Pattern:    "unvalidated hunch",
		Status:     observation.StatusDraft,
		Confidence: 0.9,
	}
	_ = store.CreateObservation(context.Background(), active)
	_ = store.CreateObservation(context.Background(), draft)

	obsSvc := service.NewObservationService(store, observation.DefaultPruneRule())
	var technicalPrompt string
	o := &mockOracle{ask: func(req oracle.Request, _ map[string]string) (string, error) {
		if strings.Contains(req.Messages[0].Content, "Technical Feasibility") {
			technicalPrompt = req.Messages[1].Content
		}
		return goodEvaluation, nil
	}}

	coord := service.NewCoordinatorService(o, obsSvc, testCouncilConfig(), nil)
	positions := coord.Evaluate(context.Background(), testProposal(), nil)

	if !strings.Contains(technicalPrompt, active.Pattern) {
		t.Error("active observation pattern missing from the technical panelist's prompt")
	}
	if strings.Contains(technicalPrompt, draft.Pattern) {
		t.Error("draft observation leaked into the prompt")
	}

	for _, pos := range positions {
		if pos.PanelistID == "technical" {
			if len(pos.ObservationsUsed) != 1 || pos.ObservationsUsed[0] != "obs-1" {
				t.Errorf("observations used = %v, want [obs-1]", pos.ObservationsUsed)
			}
		}
	}

	stored, _ := store.GetObservation(context.Background(), "obs-1")
	if stored.TimesUsed != 1 {
		t.Errorf("times used = %d, want exactly 1 per run", stored.TimesUsed)
	}
}
