package council

import (
	"math"
	"math/rand"
	"testing"
)

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregatePositions_Empty(t *testing.T) {
	agg := AggregatePositions(nil)
	if !approxEq(agg.AverageScore, 0.5) {
		t.Fatalf("empty average score = %v, want 0.5", agg.AverageScore)
	}
	if agg.Unanimous {
		t.Fatal("empty aggregate must not be unanimous")
	}
	if len(agg.Recommendations) != 0 {
		t.Fatalf("empty aggregate histogram = %v", agg.Recommendations)
	}
}

func TestAggregatePositions_Basic(t *testing.T) {
	positions := []Position{
		{Score: 0.8, Confidence: 0.9, Recommendation: RecommendApprove},
		{Score: 0.6, Confidence: 0.7, Recommendation: RecommendApprove},
		{Score: 0.7, Confidence: 0.8, Recommendation: RecommendApprove},
	}
	agg := AggregatePositions(positions)

	if !approxEq(agg.AverageScore, 0.7) {
		t.Errorf("average score = %v, want 0.7", agg.AverageScore)
	}
	if !approxEq(agg.AverageConfidence, 0.8) {
		t.Errorf("average confidence = %v, want 0.8", agg.AverageConfidence)
	}
	if !agg.Unanimous {
		t.Error("all-approve panel must be unanimous")
	}
	if agg.MinScore != 0.6 || agg.MaxScore != 0.8 {
		t.Errorf("min/max = %v/%v, want 0.6/0.8", agg.MinScore, agg.MaxScore)
	}
	if agg.Recommendations[RecommendApprove] != 3 {
		t.Errorf("approve count = %d, want 3", agg.Recommendations[RecommendApprove])
	}
}

func TestAggregatePositions_OrderIndependent(t *testing.T) {
	positions := []Position{
		{Score: 0.9, Confidence: 0.8, Recommendation: RecommendApprove},
		{Score: 0.2, Confidence: 0.5, Recommendation: RecommendReject},
		{Score: 0.55, Confidence: 0.6, Recommendation: RecommendNeedsReview},
		{Score: 0.7, Confidence: 0.9, Recommendation: RecommendApprove},
	}
	want := AggregatePositions(positions)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]Position, len(positions))
		copy(shuffled, positions)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := AggregatePositions(shuffled)
		if !approxEq(got.AverageScore, want.AverageScore) ||
			!approxEq(got.AverageConfidence, want.AverageConfidence) ||
			!approxEq(got.ScoreVariance, want.ScoreVariance) ||
			got.Unanimous != want.Unanimous ||
			got.MinScore != want.MinScore ||
			got.MaxScore != want.MaxScore {
			t.Fatalf("trial %d: aggregate depends on order: got %+v, want %+v", trial, got, want)
		}
		for rec, n := range want.Recommendations {
			if got.Recommendations[rec] != n {
				t.Fatalf("trial %d: histogram differs for %s", trial, rec)
			}
		}
	}
}

func TestAggregatePositions_DissenterVariance(t *testing.T) {
	positions := []Position{
		{Score: 0.9, Confidence: 0.9, Recommendation: RecommendApprove},
		{Score: 0.9, Confidence: 0.9, Recommendation: RecommendApprove},
		{Score: 0.1, Confidence: 0.9, Recommendation: RecommendReject},
		{Score: 0.9, Confidence: 0.9, Recommendation: RecommendApprove},
	}
	agg := AggregatePositions(positions)

	if agg.ScoreVariance <= 0.1 {
		t.Errorf("variance = %v, want > 0.1 for one hard dissenter", agg.ScoreVariance)
	}
	if len(agg.Recommendations) != 2 {
		t.Errorf("histogram keys = %d, want 2", len(agg.Recommendations))
	}
	if agg.Unanimous {
		t.Error("split panel must not be unanimous")
	}
}
