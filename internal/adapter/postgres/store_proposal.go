package postgres

import (
	"context"
	"fmt"

	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/database"
)

const proposalColumns = `
	id, title, summary, description, team_name, team_id, team_members,
	problem_statement, proposed_solution, technical_approach, prior_work,
	funding_requested, funding_currency, budget, milestones,
	program_id, round_id, website, github, demo, status, submitted_at`

// CreateProposal inserts a new proposal and fills its ID and submission time.
func (s *Store) CreateProposal(ctx context.Context, p *proposal.Proposal) error {
	members, err := jsonValue(p.TeamMembers)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	budget, err := jsonValue(p.Budget)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	milestones, err := jsonValue(p.Milestones)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}

	const q = `
		INSERT INTO proposals (title, summary, description, team_name, team_id, team_members,
			problem_statement, proposed_solution, technical_approach, prior_work,
			funding_requested, funding_currency, budget, milestones,
			program_id, round_id, website, github, demo, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, submitted_at`

	err = s.pool.QueryRow(ctx, q,
		p.Title, p.Summary, p.Description, p.TeamName, p.TeamID, members,
		p.ProblemStatement, p.ProposedSolution, p.TechnicalApproach, p.PriorWork,
		p.FundingRequested, p.FundingCurrency, budget, milestones,
		p.ProgramID, p.RoundID, p.Website, p.GitHub, p.Demo, p.Status,
	).Scan(&p.ID, &p.SubmittedAt)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

// GetProposal retrieves a proposal by ID.
func (s *Store) GetProposal(ctx context.Context, id string) (*proposal.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)

	p, err := scanProposal(row)
	if err != nil {
		return nil, notFoundWrap(err, "get proposal %s", id)
	}
	return p, nil
}

// ListProposals returns proposals newest first, optionally filtered by status.
func (s *Store) ListProposals(ctx context.Context, f database.ProposalFilter) ([]proposal.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals`
	args := []any{}
	if f.Status != "" {
		q += ` WHERE status = $1`
		args = append(args, f.Status)
	}
	q += ` ORDER BY submitted_at DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var result []proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// UpdateProposalStatus moves a proposal to a new lifecycle state.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status proposal.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals SET status = $2 WHERE id = $1`, id, status)
	return execExpectOne(tag, err, "update proposal %s status", id)
}

func scanProposal(row scannable) (*proposal.Proposal, error) {
	var (
		p          proposal.Proposal
		members    []byte
		budget     []byte
		milestones []byte
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Summary, &p.Description, &p.TeamName, &p.TeamID, &members,
		&p.ProblemStatement, &p.ProposedSolution, &p.TechnicalApproach, &p.PriorWork,
		&p.FundingRequested, &p.FundingCurrency, &budget, &milestones,
		&p.ProgramID, &p.RoundID, &p.Website, &p.GitHub, &p.Demo, &p.Status, &p.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := jsonScan(members, &p.TeamMembers); err != nil {
		return nil, err
	}
	if err := jsonScan(budget, &p.Budget); err != nil {
		return nil, err
	}
	if err := jsonScan(milestones, &p.Milestones); err != nil {
		return nil, err
	}
	return &p, nil
}
