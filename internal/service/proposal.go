package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opengrants/councild/internal/domain"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/database"
)

// ProposalService handles proposal intake and retrieval.
type ProposalService struct {
	store database.Store
}

// NewProposalService creates a ProposalService.
func NewProposalService(store database.Store) *ProposalService {
	return &ProposalService{store: store}
}

// Create validates and stores a new proposal in the pending state.
func (s *ProposalService) Create(ctx context.Context, req proposal.CreateRequest) (*proposal.Proposal, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalid)
	}

	currency := req.FundingCurrency
	if currency == "" {
		currency = "USD"
	}

	p := &proposal.Proposal{
		Title:             req.Title,
		Summary:           req.Summary,
		Description:       req.Description,
		TeamName:          req.TeamName,
		TeamID:            req.TeamID,
		TeamMembers:       req.TeamMembers,
		ProblemStatement:  req.ProblemStatement,
		ProposedSolution:  req.ProposedSolution,
		TechnicalApproach: req.TechnicalApproach,
		PriorWork:         req.PriorWork,
		FundingRequested:  req.FundingRequested,
		FundingCurrency:   currency,
		Budget:            req.Budget,
		Milestones:        req.Milestones,
		ProgramID:         req.ProgramID,
		RoundID:           req.RoundID,
		Website:           req.Website,
		GitHub:            req.GitHub,
		Demo:              req.Demo,
		Status:            proposal.StatusPending,
	}
	if err := s.store.CreateProposal(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("proposal submitted",
		"proposal_id", p.ID,
		"team", p.TeamName,
		"funding_requested", p.FundingRequested,
	)
	return p, nil
}

// Get retrieves a proposal by ID.
func (s *ProposalService) Get(ctx context.Context, id string) (*proposal.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

// List returns proposals matching the filter.
func (s *ProposalService) List(ctx context.Context, f database.ProposalFilter) ([]proposal.Proposal, error) {
	return s.store.ListProposals(ctx, f)
}
