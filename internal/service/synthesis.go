package service

import (
	"context"
	"log/slog"

	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/oracle"
)

// SynthesisService produces the operator-facing synthesis and the
// applicant-facing feedback from the council's final positions. Both are
// best-effort prose: a failed call degrades to an empty string and never
// fails the decision.
type SynthesisService struct {
	oracle oracle.Oracle
	model  string
	cfg    config.Council
}

// NewSynthesisService creates a SynthesisService. model is the synthesis
// model, independent of the panelist models.
func NewSynthesisService(o oracle.Oracle, model string, cfg config.Council) *SynthesisService {
	return &SynthesisService{oracle: o, model: model, cfg: cfg}
}

// Synthesize returns the decision synthesis for operators.
func (s *SynthesisService) Synthesize(ctx context.Context, p *proposal.Proposal, positions []council.Position, agg council.Aggregate) string {
	system, user := buildSynthesisPrompt(p, positions, agg)
	return s.prose(ctx, p.ID, "synthesis", system, user)
}

// ApplicantFeedback returns the feedback letter for the applicant.
func (s *SynthesisService) ApplicantFeedback(ctx context.Context, p *proposal.Proposal, positions []council.Position) string {
	system, user := buildFeedbackPrompt(p, positions)
	return s.prose(ctx, p.ID, "applicant feedback", system, user)
}

func (s *SynthesisService) prose(ctx context.Context, proposalID, kind, system, user string) string {
	resp, err := s.oracle.Judge(ctx, oracle.Request{
		Model:       s.model,
		Temperature: s.cfg.JudgeTemperature,
		Messages: []oracle.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		slog.Error(kind+" generation failed", "proposal_id", proposalID, "error", err)
		return ""
	}
	return resp.Content
}
