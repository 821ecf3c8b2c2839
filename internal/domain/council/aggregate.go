package council

// Aggregate summarizes the council's final positions. It is a pure,
// order-independent function of the position list.
type Aggregate struct {
	AverageScore      float64                `json:"average_score"`
	AverageConfidence float64                `json:"average_confidence"`
	ScoreVariance     float64                `json:"score_variance"`
	Recommendations   map[Recommendation]int `json:"recommendation_counts"`
	Unanimous         bool                   `json:"unanimous"`
	MinScore          float64                `json:"min_score"`
	MaxScore          float64                `json:"max_score"`
}

// AggregatePositions reduces final positions to summary statistics. An empty
// position list yields a neutral aggregate that routing always sends to review.
func AggregatePositions(positions []Position) Aggregate {
	if len(positions) == 0 {
		return Aggregate{
			AverageScore:    0.5,
			Recommendations: map[Recommendation]int{},
		}
	}

	agg := Aggregate{
		Recommendations: make(map[Recommendation]int, 3),
		MinScore:        positions[0].Score,
		MaxScore:        positions[0].Score,
	}

	for i := range positions {
		p := &positions[i]
		agg.AverageScore += p.Score
		agg.AverageConfidence += p.Confidence
		agg.Recommendations[p.Recommendation]++
		if p.Score < agg.MinScore {
			agg.MinScore = p.Score
		}
		if p.Score > agg.MaxScore {
			agg.MaxScore = p.Score
		}
	}

	n := float64(len(positions))
	agg.AverageScore /= n
	agg.AverageConfidence /= n

	// Population variance.
	for i := range positions {
		d := positions[i].Score - agg.AverageScore
		agg.ScoreVariance += d * d
	}
	agg.ScoreVariance /= n

	agg.Unanimous = len(agg.Recommendations) == 1

	return agg
}
