package postgres

import (
	"context"
	"fmt"

	"github.com/opengrants/councild/internal/domain/council"
)

const decisionColumns = `
	id, proposal_id, average_score, average_confidence, score_variance,
	recommendation, positions, auto_executed, requires_human_review, review_reasons,
	synthesis, applicant_feedback, human_decision, human_rationale, human_reviewer,
	created_at, decided_at`

// CreateDecision inserts a council decision and fills its ID and creation time.
func (s *Store) CreateDecision(ctx context.Context, d *council.Decision) error {
	positions, err := jsonValue(d.Positions)
	if err != nil {
		return fmt.Errorf("create decision: %w", err)
	}

	const q = `
		INSERT INTO decisions (proposal_id, average_score, average_confidence, score_variance,
			recommendation, positions, auto_executed, requires_human_review, review_reasons,
			synthesis, applicant_feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = s.pool.QueryRow(ctx, q,
		d.ProposalID, d.AverageScore, d.AverageConfidence, d.ScoreVariance,
		d.Recommendation, positions, d.AutoExecuted, d.RequiresHumanReview,
		pgTextArray(d.ReviewReasons), d.Synthesis, d.ApplicantFeedback,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a decision by ID.
func (s *Store) GetDecision(ctx context.Context, id string) (*council.Decision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id)

	d, err := scanDecision(row)
	if err != nil {
		return nil, notFoundWrap(err, "get decision %s", id)
	}
	return d, nil
}

// GetDecisionForProposal retrieves the most recent decision for a proposal.
func (s *Store) GetDecisionForProposal(ctx context.Context, proposalID string) (*council.Decision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM decisions
		 WHERE proposal_id = $1 ORDER BY created_at DESC LIMIT 1`, proposalID)

	d, err := scanDecision(row)
	if err != nil {
		return nil, notFoundWrap(err, "get decision for proposal %s", proposalID)
	}
	return d, nil
}

// ListDecisions returns decisions newest first.
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]council.Decision, error) {
	q := `SELECT ` + decisionColumns + ` FROM decisions ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var result []council.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// UpdateDecisionHuman records the human ruling fields on an existing decision.
func (s *Store) UpdateDecisionHuman(ctx context.Context, d *council.Decision) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions
		 SET human_decision = $2, human_rationale = $3, human_reviewer = $4, decided_at = $5
		 WHERE id = $1`,
		d.ID, d.HumanDecision, d.HumanRationale, d.HumanReviewer, nullTime(d.DecidedAt))
	return execExpectOne(tag, err, "update decision %s human ruling", d.ID)
}

func scanDecision(row scannable) (*council.Decision, error) {
	var (
		d         council.Decision
		positions []byte
	)
	err := row.Scan(
		&d.ID, &d.ProposalID, &d.AverageScore, &d.AverageConfidence, &d.ScoreVariance,
		&d.Recommendation, &positions, &d.AutoExecuted, &d.RequiresHumanReview, &d.ReviewReasons,
		&d.Synthesis, &d.ApplicantFeedback, &d.HumanDecision, &d.HumanRationale, &d.HumanReviewer,
		&d.CreatedAt, &d.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := jsonScan(positions, &d.Positions); err != nil {
		return nil, err
	}
	return &d, nil
}
