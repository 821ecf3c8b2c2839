package council

import "fmt"

// RoutingPolicy holds the thresholds for the aggregation-and-routing rule set.
type RoutingPolicy struct {
	ApproveThreshold   float64 `yaml:"approve_threshold"`    // mean score at or above this approves (default 0.85)
	RejectThreshold    float64 `yaml:"reject_threshold"`     // mean score at or below this rejects (default 0.15)
	BudgetCeiling      float64 `yaml:"budget_ceiling"`       // funding above this always needs review (default 50000)
	MaxScoreVariance   float64 `yaml:"max_score_variance"`   // variance above this vetoes auto-execute (default 0.1)
	MinAutoConfidence  float64 `yaml:"min_auto_confidence"`  // mean confidence required to auto-execute (default 0.8)
	MinRouteConfidence float64 `yaml:"min_route_confidence"` // mean confidence below this vetoes (default 0.6)
	BorderlineLow      float64 `yaml:"borderline_low"`       // borderline band lower bound (default 0.4)
	BorderlineHigh     float64 `yaml:"borderline_high"`      // borderline band upper bound (default 0.6)
}

// DefaultRoutingPolicy returns the reference thresholds.
func DefaultRoutingPolicy() RoutingPolicy {
	return RoutingPolicy{
		ApproveThreshold:   0.85,
		RejectThreshold:    0.15,
		BudgetCeiling:      50000,
		MaxScoreVariance:   0.1,
		MinAutoConfidence:  0.8,
		MinRouteConfidence: 0.6,
		BorderlineLow:      0.4,
		BorderlineHigh:     0.6,
	}
}

// Routing is the outcome of applying the rule set to an aggregate.
type Routing struct {
	Recommendation Recommendation `json:"recommendation"`
	AutoExecute    bool           `json:"auto_execute"`
	ReviewReasons  []string       `json:"review_reasons"`
}

// Route applies the ordered, cumulative rule set. Every veto rule is evaluated
// regardless of earlier results; reasons accumulate and never short-circuit.
// A needs_review recommendation is never auto-executed.
func (p RoutingPolicy) Route(agg Aggregate, fundingRequested float64) Routing {
	var rt Routing
	rt.ReviewReasons = []string{}

	// Rule 1: base recommendation from mean score.
	switch {
	case agg.AverageScore >= p.ApproveThreshold:
		rt.Recommendation = RecommendApprove
	case agg.AverageScore <= p.RejectThreshold:
		rt.Recommendation = RecommendReject
	default:
		rt.Recommendation = RecommendNeedsReview
	}

	// Rule 2: tentative auto-execute.
	if agg.Unanimous && agg.AverageConfidence >= p.MinAutoConfidence &&
		(rt.Recommendation == RecommendApprove || rt.Recommendation == RecommendReject) {
		rt.AutoExecute = true
	}

	// Rule 3: budget ceiling veto.
	if fundingRequested > p.BudgetCeiling {
		rt.AutoExecute = false
		rt.ReviewReasons = append(rt.ReviewReasons,
			fmt.Sprintf("Budget exceeds %.0f threshold", p.BudgetCeiling))
	}

	// Rule 4: score variance veto.
	if agg.ScoreVariance > p.MaxScoreVariance {
		rt.AutoExecute = false
		rt.ReviewReasons = append(rt.ReviewReasons, "Significant disagreement among evaluators")
	}

	// Rule 5: low confidence veto.
	if agg.AverageConfidence < p.MinRouteConfidence {
		rt.AutoExecute = false
		rt.ReviewReasons = append(rt.ReviewReasons, "Low overall confidence in evaluation")
	}

	// Rule 6: split recommendation veto, evaluated independently of unanimity.
	if len(agg.Recommendations) > 1 {
		rt.AutoExecute = false
		rt.ReviewReasons = append(rt.ReviewReasons, "Split recommendation from evaluators")
	}

	// Rule 7: borderline score veto (closed interval).
	if agg.AverageScore >= p.BorderlineLow && agg.AverageScore <= p.BorderlineHigh {
		rt.AutoExecute = false
		rt.ReviewReasons = append(rt.ReviewReasons, "Borderline score requires human judgment")
	}

	return rt
}
