package council

import "time"

// Recommendation is a panelist's or the council's ruling on a proposal.
type Recommendation string

// Recommendation values.
const (
	RecommendApprove     Recommendation = "approve"
	RecommendReject      Recommendation = "reject"
	RecommendNeedsReview Recommendation = "needs_review"
)

// Valid reports whether the recommendation is a known value.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendApprove, RecommendReject, RecommendNeedsReview:
		return true
	}
	return false
}

// Position is one panelist's scored judgment of one proposal at one point in
// deliberation. Positions are never mutated: a revision supersedes the prior
// Position and carries the pre-revision score for audit.
type Position struct {
	ID           string `json:"id"`
	ProposalID   string `json:"proposal_id"`
	PanelistID   string `json:"panelist_id"`
	PanelistName string `json:"panelist_name"`

	Score          float64        `json:"score"`      // [0,1]
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"` // [0,1]

	Rationale string   `json:"rationale"`
	Strengths []string `json:"strengths,omitempty"`
	Concerns  []string `json:"concerns,omitempty"`
	Questions []string `json:"questions,omitempty"`

	ObservationsUsed []string `json:"observations_used,omitempty"`

	Revised           bool    `json:"revised"`
	OriginalScore     float64 `json:"original_score,omitempty"`
	RevisionRationale string  `json:"revision_rationale,omitempty"`
	Round             int     `json:"round"`

	CreatedAt time.Time `json:"created_at"`
}

// Revision is a panelist's proposed position change during a deliberation round.
type Revision struct {
	Revised           bool           `json:"revised"`
	Score             float64        `json:"score"`
	Recommendation    Recommendation `json:"recommendation"`
	Confidence        float64        `json:"confidence"`
	RevisionRationale string         `json:"revision_rationale"`
}

// Apply returns the position that results from accepting rev against current
// in the given round. The original long-form rationale is preserved; the
// pre-revision score is retained for audit.
func (rev Revision) Apply(current Position, round int) Position {
	next := current
	next.Score = ClampUnit(rev.Score)
	next.Confidence = ClampUnit(rev.Confidence)
	if rev.Recommendation.Valid() {
		next.Recommendation = rev.Recommendation
	}
	next.Revised = true
	next.OriginalScore = current.Score
	next.RevisionRationale = rev.RevisionRationale
	next.Round = round
	return next
}

// Material reports whether the revision's score delta clears the configured
// change threshold. Sub-threshold deltas are treated as cosmetic rewording and
// the prior position is kept.
func (rev Revision) Material(current Position, threshold float64) bool {
	delta := rev.Score - current.Score
	if delta < 0 {
		delta = -delta
	}
	return delta >= threshold
}

// ClampUnit clamps v into [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
