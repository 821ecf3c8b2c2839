// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/domain/team"
)

// ProposalFilter narrows proposal listings.
type ProposalFilter struct {
	Status proposal.Status
	Limit  int
}

// ObservationFilter narrows observation scans.
type ObservationFilter struct {
	PanelistID string
	Status     observation.Status
	Tags       []string
	Limit      int
}

// Store is the port interface for persistence.
type Store interface {
	// Proposals
	CreateProposal(ctx context.Context, p *proposal.Proposal) error
	GetProposal(ctx context.Context, id string) (*proposal.Proposal, error)
	ListProposals(ctx context.Context, f ProposalFilter) ([]proposal.Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status proposal.Status) error

	// Decisions
	CreateDecision(ctx context.Context, d *council.Decision) error
	GetDecision(ctx context.Context, id string) (*council.Decision, error)
	GetDecisionForProposal(ctx context.Context, proposalID string) (*council.Decision, error)
	ListDecisions(ctx context.Context, limit int) ([]council.Decision, error)
	UpdateDecisionHuman(ctx context.Context, d *council.Decision) error

	// Observations
	CreateObservation(ctx context.Context, o *observation.Observation) error
	GetObservation(ctx context.Context, id string) (*observation.Observation, error)
	ListObservations(ctx context.Context, f ObservationFilter) ([]observation.Observation, error)
	UpdateObservation(ctx context.Context, o *observation.Observation) error
	IncrementObservationUsage(ctx context.Context, ids []string) error

	// Teams
	GetTeam(ctx context.Context, id string) (*team.Profile, error)
	FindTeamByName(ctx context.Context, name string) (*team.Profile, error)
	FindTeamByWallet(ctx context.Context, wallet string) (*team.Profile, error)
}
