// Package council provides the domain model for the evaluation council:
// panelists, their positions, aggregation of final positions, and the
// deterministic routing policy that decides whether a recommendation may be
// executed without human review.
package council

// Panelist is a fixed evaluation perspective on the council. The panelist set
// is configuration, loaded once at startup and never mutated at runtime.
type Panelist struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Model     string   `json:"model" yaml:"model"`
	Character string   `json:"-" yaml:"character"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// DefaultPanelists returns the reference deployment's four-member council.
func DefaultPanelists() []Panelist {
	return []Panelist{
		{
			ID:    "technical",
			Name:  "Technical Feasibility Panelist",
			Model: "openai/gpt-4o-mini",
			Character: "You are the Technical Feasibility Panelist on a grants council. " +
				"You evaluate whether proposed projects can actually be built as described: " +
				"technical specificity, team capability, timeline realism, architecture soundness, " +
				"and dependency risks. You are naturally skeptical; vague technical descriptions " +
				"are red flags. Cite specific parts of the proposal that support or undermine feasibility.",
			Tags: []string{"technical", "feasibility", "engineering", "architecture", "timeline"},
		},
		{
			ID:    "ecosystem",
			Name:  "Ecosystem Fit Panelist",
			Model: "openai/gpt-4o-mini",
			Character: "You are the Ecosystem Fit Panelist on a grants council. " +
				"You evaluate strategic alignment with program priorities, whether the project " +
				"fills a genuine gap or duplicates funded work, composability, community benefit, " +
				"and timing. Reference how the project relates to the broader ecosystem landscape.",
			Tags: []string{"ecosystem", "strategy", "alignment", "community", "timing"},
		},
		{
			ID:    "budget",
			Name:  "Budget Reasonableness Panelist",
			Model: "openai/gpt-4o-mini",
			Character: "You are the Budget Reasonableness Panelist on a grants council. " +
				"You evaluate whether the funding ask matches the scope of work: cost benchmarks, " +
				"line-item justification, scope-to-cost ratio, burn rate, and milestone alignment. " +
				"Flag asks that look inflated, understaffed, or misaligned with market rates.",
			Tags: []string{"budget", "cost", "funding", "financial", "milestones"},
		},
		{
			ID:    "impact",
			Name:  "Impact Assessment Panelist",
			Model: "openai/gpt-4o-mini",
			Character: "You are the Impact Assessment Panelist on a grants council. " +
				"You evaluate lasting value: reach, durability, the counterfactual of not funding, " +
				"leverage for other work, and whether the claimed impact is measurable. " +
				"You are skeptical of vanity metrics and think about second-order effects.",
			Tags: []string{"impact", "value", "reach", "outcomes", "measurement"},
		},
	}
}
