package council

import (
	"errors"
	"time"
)

// Decision is the council's final ruling for one proposal run. It is created
// once per run and updated in place only by the human-override step.
type Decision struct {
	ID         string `json:"id"`
	ProposalID string `json:"proposal_id"`

	AverageScore      float64        `json:"average_score"`
	AverageConfidence float64        `json:"average_confidence"`
	ScoreVariance     float64        `json:"score_variance"`
	Recommendation    Recommendation `json:"recommendation"`

	Positions []Position `json:"positions"`

	AutoExecuted        bool     `json:"auto_executed"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	ReviewReasons       []string `json:"review_reasons"`

	Synthesis         string `json:"synthesis"`
	ApplicantFeedback string `json:"applicant_feedback"`

	HumanDecision  Recommendation `json:"human_decision,omitempty"`
	HumanRationale string         `json:"human_rationale,omitempty"`
	HumanReviewer  string         `json:"human_reviewer,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// HumanDecisionRequest is the input for recording a human ruling on a decision.
type HumanDecisionRequest struct {
	Decision  Recommendation `json:"decision"`
	Rationale string         `json:"rationale"`
	Reviewer  string         `json:"reviewer"`
}

// Validate checks the human decision payload before any state mutation.
func (r *HumanDecisionRequest) Validate() error {
	if r.Decision != RecommendApprove && r.Decision != RecommendReject {
		return errors.New("decision must be approve or reject")
	}
	if r.Reviewer == "" {
		return errors.New("reviewer is required")
	}
	return nil
}

// IsOverride reports whether the human ruling contradicts the council's
// recommendation: an approve/reject swap, or any ruling on a needs_review case.
func (d *Decision) IsOverride(human Recommendation) bool {
	switch d.Recommendation {
	case RecommendApprove:
		return human == RecommendReject
	case RecommendReject:
		return human == RecommendApprove
	case RecommendNeedsReview:
		return human == RecommendApprove || human == RecommendReject
	}
	return false
}
