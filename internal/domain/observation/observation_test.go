package observation

import (
	"testing"
	"time"
)

func TestRank_FiltersNonActive(t *testing.T) {
	obs := []Observation{
		{ID: "draft", Status: StatusDraft, Confidence: 0.99, Tags: []string{"budget"}},
		{ID: "deprecated", Status: StatusDeprecated, Confidence: 0.99, Tags: []string{"budget"}},
		{ID: "active", Status: StatusActive, Confidence: 0.1},
	}

	ranked := Rank(obs, []string{"budget"}, 10)
	if len(ranked) != 1 || ranked[0].ID != "active" {
		t.Fatalf("ranked = %v, want only the active observation", ids(ranked))
	}
}

func TestRank_Ordering(t *testing.T) {
	obs := []Observation{
		{ID: "low-overlap", Status: StatusActive, Confidence: 0.9, Tags: []string{"impact"}},
		{ID: "high-overlap", Status: StatusActive, Confidence: 0.3, Tags: []string{"budget", "cost"}},
		{ID: "tie-helpful", Status: StatusActive, Confidence: 0.5, Tags: []string{"budget"}, TimesUsed: 10, TimesHelpful: 9},
		{ID: "tie-unhelpful", Status: StatusActive, Confidence: 0.5, Tags: []string{"budget"}, TimesUsed: 10, TimesHelpful: 1},
	}

	ranked := Rank(obs, []string{"budget", "cost"}, 10)
	want := []string{"high-overlap", "tie-helpful", "tie-unhelpful", "low-overlap"}
	got := ids(ranked)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestRank_Limit(t *testing.T) {
	obs := make([]Observation, 8)
	for i := range obs {
		obs[i] = Observation{ID: string(rune('a' + i)), Status: StatusActive}
	}
	if got := Rank(obs, nil, 5); len(got) != 5 {
		t.Fatalf("limit 5 returned %d", len(got))
	}
	if got := Rank(obs, nil, 0); len(got) != 8 {
		t.Fatalf("limit 0 should not truncate, got %d", len(got))
	}
}

func TestActivateLifecycle(t *testing.T) {
	o := &Observation{Status: StatusDraft, Evidence: []string{"prop-1"}}

	now := time.Now()
	if err := o.Activate("reviewer@example.org", now); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if o.Status != StatusActive || o.ValidatedBy != "reviewer@example.org" || o.ValidatedAt == nil {
		t.Fatalf("activated observation = %+v", o)
	}

	// Active observations cannot be re-activated.
	if err := o.Activate("again", now); err == nil {
		t.Fatal("expected error re-activating an active observation")
	}

	if err := o.Deprecate(); err != nil {
		t.Fatalf("Deprecate: %v", err)
	}
	if err := o.Deprecate(); err == nil {
		t.Fatal("expected error deprecating twice")
	}
}

func TestActivate_RequiresEvidence(t *testing.T) {
	o := &Observation{Status: StatusDraft}
	if err := o.Activate("reviewer", time.Now()); err == nil {
		t.Fatal("expected error activating without evidence")
	}
}

func TestPruneRule_Stale(t *testing.T) {
	now := time.Now()
	rule := DefaultPruneRule()
	evidence := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name string
		o    Observation
		want bool
	}{
		{
			name: "thin evidence",
			o:    Observation{Evidence: []string{"a"}, CreatedAt: now},
			want: true,
		},
		{
			name: "old and rarely retrieved",
			o:    Observation{Evidence: evidence, CreatedAt: now.Add(-200 * 24 * time.Hour), TimesUsed: 2},
			want: true,
		},
		{
			name: "old but well retrieved",
			o:    Observation{Evidence: evidence, CreatedAt: now.Add(-200 * 24 * time.Hour), TimesUsed: 50},
			want: false,
		},
		{
			name: "fresh with evidence",
			o:    Observation{Evidence: evidence, CreatedAt: now.Add(-24 * time.Hour)},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Stale(&tt.o, now); got != tt.want {
				t.Errorf("Stale = %v, want %v", got, tt.want)
			}
		})
	}
}

func ids(obs []Observation) []string {
	out := make([]string, len(obs))
	for i := range obs {
		out[i] = obs[i].ID
	}
	return out
}
