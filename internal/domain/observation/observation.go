// Package observation provides the domain model for learned evaluation
// heuristics. Observations start as drafts produced by the learning loop and
// only feed future evaluations after explicit human validation.
package observation

import (
	"errors"
	"sort"
	"time"
)

// Status is the lifecycle state of an observation.
type Status string

// Observation lifecycle states.
const (
	StatusDraft      Status = "draft"
	StatusReviewed   Status = "reviewed"
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// Observation is a persisted heuristic pattern learned by one panelist.
type Observation struct {
	ID         string `json:"id"`
	PanelistID string `json:"panelist_id"`

	Pattern  string   `json:"pattern"`
	Evidence []string `json:"evidence"` // proposal IDs supporting the pattern
	Tags     []string `json:"tags,omitempty"`

	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	ValidatedBy string     `json:"validated_by,omitempty"`

	TimesUsed    int `json:"times_used"`
	TimesHelpful int `json:"times_helpful"`
}

// CanActivate reports whether the observation may be promoted to Active.
// Only validated drafts become active, and an active observation must carry
// non-empty evidence.
func (o *Observation) CanActivate() error {
	if o.Status != StatusDraft && o.Status != StatusReviewed {
		return errors.New("only draft observations can be activated")
	}
	if len(o.Evidence) == 0 {
		return errors.New("observation has no supporting evidence")
	}
	return nil
}

// Activate promotes the observation, recording the validator and timestamp.
func (o *Observation) Activate(reviewer string, at time.Time) error {
	if err := o.CanActivate(); err != nil {
		return err
	}
	o.Status = StatusActive
	o.ValidatedAt = &at
	o.ValidatedBy = reviewer
	return nil
}

// Deprecate retires the observation from retrieval.
func (o *Observation) Deprecate() error {
	if o.Status == StatusDeprecated {
		return errors.New("observation already deprecated")
	}
	o.Status = StatusDeprecated
	return nil
}

// helpfulness is the fraction of retrievals a human marked helpful.
func (o *Observation) helpfulness() float64 {
	if o.TimesUsed == 0 {
		return 0
	}
	return float64(o.TimesHelpful) / float64(o.TimesUsed)
}

// tagOverlap counts tags shared between the observation and the query set.
func (o *Observation) tagOverlap(tags []string) int {
	n := 0
	for _, qt := range tags {
		for _, ot := range o.Tags {
			if qt == ot {
				n++
				break
			}
		}
	}
	return n
}

// Rank orders active observations for retrieval: tag overlap first, then
// confidence, then historical helpfulness. Deprecated and draft observations
// must be filtered out before ranking; Rank drops them defensively as well.
// The input slice is not modified.
func Rank(obs []Observation, tags []string, limit int) []Observation {
	ranked := make([]Observation, 0, len(obs))
	for i := range obs {
		if obs[i].Status == StatusActive {
			ranked = append(ranked, obs[i])
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		oi, oj := &ranked[i], &ranked[j]
		if a, b := oi.tagOverlap(tags), oj.tagOverlap(tags); a != b {
			return a > b
		}
		if oi.Confidence != oj.Confidence {
			return oi.Confidence > oj.Confidence
		}
		return oi.helpfulness() > oj.helpfulness()
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// PruneRule holds the staleness thresholds for the observation pool.
type PruneRule struct {
	MinEvidence  int           // active observations need at least this much evidence
	MaxAge       time.Duration // older than this with low usage is stale
	MinRetrieval int           // usage count that exempts an old observation
}

// DefaultPruneRule returns the reference pruning thresholds.
func DefaultPruneRule() PruneRule {
	return PruneRule{
		MinEvidence:  5,
		MaxAge:       180 * 24 * time.Hour,
		MinRetrieval: 10,
	}
}

// Stale reports whether the observation should be flagged for deprecation.
// Pruning only flags; deprecation is a separate explicit step.
func (r PruneRule) Stale(o *Observation, now time.Time) bool {
	if len(o.Evidence) < r.MinEvidence {
		return true
	}
	if o.CreatedAt.Before(now.Add(-r.MaxAge)) && o.TimesUsed < r.MinRetrieval {
		return true
	}
	return false
}
