// Package proposal provides the domain model for funding proposals and their
// evaluation lifecycle.
package proposal

import (
	"errors"
	"time"
)

// Status is the evaluation lifecycle state of a proposal.
type Status string

// Proposal lifecycle states.
const (
	StatusPending      Status = "pending"
	StatusEvaluating   Status = "evaluating"
	StatusDeliberating Status = "deliberating"
	StatusAutoApproved Status = "auto_approved"
	StatusAutoRejected Status = "auto_rejected"
	StatusNeedsReview  Status = "needs_review"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
)

// transitions is the fixed status machine. Human override states are reachable
// from every post-routing state.
var transitions = map[Status][]Status{
	StatusPending:      {StatusEvaluating},
	StatusEvaluating:   {StatusDeliberating},
	StatusDeliberating: {StatusAutoApproved, StatusAutoRejected, StatusNeedsReview},
	StatusAutoApproved: {StatusApproved, StatusRejected},
	StatusAutoRejected: {StatusApproved, StatusRejected},
	StatusNeedsReview:  {StatusApproved, StatusRejected},
}

// CanTransition reports whether moving from s to next is a legal status change.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is a human-final decision state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// TeamMember is one member of the applicant team.
type TeamMember struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	WalletAddress string `json:"wallet_address,omitempty"`
	GitHub        string `json:"github,omitempty"`
	Bio           string `json:"bio,omitempty"`
}

// BudgetItem is a single line in the requested budget.
type BudgetItem struct {
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Justification string  `json:"justification,omitempty"`
}

// Milestone is a deliverable checkpoint with attached funding.
type Milestone struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Deliverables  []string `json:"deliverables,omitempty"`
	Timeline      string   `json:"timeline,omitempty"`
	FundingAmount float64  `json:"funding_amount"`
}

// Proposal is an immutable funding request under council evaluation.
// Only Status changes after submission.
type Proposal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Description string `json:"description"`

	TeamName    string       `json:"team_name"`
	TeamID      string       `json:"team_id,omitempty"`
	TeamMembers []TeamMember `json:"team_members,omitempty"`

	ProblemStatement  string `json:"problem_statement,omitempty"`
	ProposedSolution  string `json:"proposed_solution,omitempty"`
	TechnicalApproach string `json:"technical_approach,omitempty"`
	PriorWork         string `json:"prior_work,omitempty"`

	FundingRequested float64      `json:"funding_requested"`
	FundingCurrency  string       `json:"funding_currency"`
	Budget           []BudgetItem `json:"budget,omitempty"`
	Milestones       []Milestone  `json:"milestones,omitempty"`

	ProgramID string `json:"program_id,omitempty"`
	RoundID   string `json:"round_id,omitempty"`

	Website string `json:"website,omitempty"`
	GitHub  string `json:"github,omitempty"`
	Demo    string `json:"demo,omitempty"`

	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CreateRequest is the input for submitting a new proposal.
type CreateRequest struct {
	Title             string       `json:"title"`
	Summary           string       `json:"summary"`
	Description       string       `json:"description"`
	TeamName          string       `json:"team_name"`
	TeamID            string       `json:"team_id,omitempty"`
	TeamMembers       []TeamMember `json:"team_members,omitempty"`
	ProblemStatement  string       `json:"problem_statement,omitempty"`
	ProposedSolution  string       `json:"proposed_solution,omitempty"`
	TechnicalApproach string       `json:"technical_approach,omitempty"`
	PriorWork         string       `json:"prior_work,omitempty"`
	FundingRequested  float64      `json:"funding_requested"`
	FundingCurrency   string       `json:"funding_currency,omitempty"`
	Budget            []BudgetItem `json:"budget,omitempty"`
	Milestones        []Milestone  `json:"milestones,omitempty"`
	ProgramID         string       `json:"program_id,omitempty"`
	RoundID           string       `json:"round_id,omitempty"`
	Website           string       `json:"website,omitempty"`
	GitHub            string       `json:"github,omitempty"`
	Demo              string       `json:"demo,omitempty"`
}

// Validate checks required fields on a CreateRequest.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.TeamName == "" {
		return errors.New("team_name is required")
	}
	if r.FundingRequested < 0 {
		return errors.New("funding_requested must not be negative")
	}
	return nil
}

// Outcome is the recorded real-world result of a funded proposal.
type Outcome string

// Outcome values.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Valid reports whether the outcome is a known value.
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}
