// Package team provides the domain model for applicant team history and the
// reputation context fed to panelists.
package team

import "time"

// Profile aggregates an applicant team's funding track record.
type Profile struct {
	ID            string `json:"id"`
	CanonicalName string `json:"canonical_name"`

	Aliases         []string `json:"aliases,omitempty"`
	WalletAddresses []string `json:"wallet_addresses,omitempty"`
	ProposalIDs     []string `json:"proposal_ids,omitempty"`

	SuccessfulGrants        int     `json:"successful_grants"`
	FailedGrants            int     `json:"failed_grants"`
	TotalFunded             float64 `json:"total_funded"`
	MilestoneCompletionRate float64 `json:"milestone_completion_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Context is the reputation summary shown to panelists during evaluation.
type Context struct {
	TeamID                  string  `json:"team_id"`
	CanonicalName           string  `json:"canonical_name"`
	PreviousProposals       int     `json:"previous_proposals"`
	SuccessfulGrants        int     `json:"successful_grants"`
	FailedGrants            int     `json:"failed_grants"`
	TotalFunded             float64 `json:"total_funded"`
	MilestoneCompletionRate float64 `json:"milestone_completion_rate"`
}

// ContextOf converts a profile into the evaluation context summary.
func ContextOf(p *Profile) *Context {
	return &Context{
		TeamID:                  p.ID,
		CanonicalName:           p.CanonicalName,
		PreviousProposals:       len(p.ProposalIDs),
		SuccessfulGrants:        p.SuccessfulGrants,
		FailedGrants:            p.FailedGrants,
		TotalFunded:             p.TotalFunded,
		MilestoneCompletionRate: p.MilestoneCompletionRate,
	}
}
