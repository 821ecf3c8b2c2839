package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opengrants/councild/internal/domain"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/port/database"
)

// ObservationService manages the learned-heuristic pool: retrieval for
// evaluations and the human-gated lifecycle (activate, deprecate, prune).
type ObservationService struct {
	store database.Store
	rule  observation.PruneRule
}

// NewObservationService creates an ObservationService.
func NewObservationService(store database.Store, rule observation.PruneRule) *ObservationService {
	return &ObservationService{store: store, rule: rule}
}

// RetrieveFor returns the top active observations for a panelist ranked
// against the given tags, and bumps their usage counters. Retrieval failures
// degrade to an empty set: an evaluation never fails because the pool is
// unavailable.
func (s *ObservationService) RetrieveFor(ctx context.Context, panelistID string, tags []string, limit int) []observation.Observation {
	obs, err := s.store.ListObservations(ctx, database.ObservationFilter{
		PanelistID: panelistID,
		Status:     observation.StatusActive,
	})
	if err != nil {
		slog.Error("observation retrieval failed", "panelist_id", panelistID, "error", err)
		return nil
	}

	ranked := observation.Rank(obs, tags, limit)
	if len(ranked) == 0 {
		return nil
	}

	ids := make([]string, len(ranked))
	for i := range ranked {
		ids[i] = ranked[i].ID
	}
	if err := s.store.IncrementObservationUsage(ctx, ids); err != nil {
		slog.Error("observation usage increment failed", "error", err)
	}
	return ranked
}

// Get retrieves one observation.
func (s *ObservationService) Get(ctx context.Context, id string) (*observation.Observation, error) {
	return s.store.GetObservation(ctx, id)
}

// List returns observations matching the filter.
func (s *ObservationService) List(ctx context.Context, f database.ObservationFilter) ([]observation.Observation, error) {
	return s.store.ListObservations(ctx, f)
}

// Activate promotes a draft observation into active retrieval after human
// validation.
func (s *ObservationService) Activate(ctx context.Context, id, reviewer string) (*observation.Observation, error) {
	o, err := s.store.GetObservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Activate(reviewer, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("activate observation %s: %s: %w", id, err.Error(), domain.ErrConflict)
	}
	if err := s.store.UpdateObservation(ctx, o); err != nil {
		return nil, err
	}
	slog.Info("observation activated", "observation_id", id, "panelist_id", o.PanelistID, "reviewer", reviewer)
	return o, nil
}

// Deprecate retires an observation from retrieval.
func (s *ObservationService) Deprecate(ctx context.Context, id string) (*observation.Observation, error) {
	o, err := s.store.GetObservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Deprecate(); err != nil {
		return nil, fmt.Errorf("deprecate observation %s: %s: %w", id, err.Error(), domain.ErrConflict)
	}
	if err := s.store.UpdateObservation(ctx, o); err != nil {
		return nil, err
	}
	slog.Info("observation deprecated", "observation_id", id, "panelist_id", o.PanelistID)
	return o, nil
}

// MarkHelpful records that a retrieval of this observation was judged helpful
// by a human reviewer.
func (s *ObservationService) MarkHelpful(ctx context.Context, id string) (*observation.Observation, error) {
	o, err := s.store.GetObservation(ctx, id)
	if err != nil {
		return nil, err
	}
	o.TimesHelpful++
	if err := s.store.UpdateObservation(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// PruneStale returns active observations that fail the staleness rule. The
// scan only flags candidates; with apply set, the flagged observations are
// also deprecated in the same pass.
func (s *ObservationService) PruneStale(ctx context.Context, apply bool) ([]observation.Observation, error) {
	obs, err := s.store.ListObservations(ctx, database.ObservationFilter{
		Status: observation.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("prune scan: %w", err)
	}

	now := time.Now().UTC()
	var stale []observation.Observation
	for i := range obs {
		if !s.rule.Stale(&obs[i], now) {
			continue
		}
		if apply {
			if err := obs[i].Deprecate(); err == nil {
				if err := s.store.UpdateObservation(ctx, &obs[i]); err != nil {
					slog.Error("prune deprecation failed", "observation_id", obs[i].ID, "error", err)
				}
			}
		}
		stale = append(stale, obs[i])
	}
	slog.Info("prune scan complete", "active", len(obs), "stale", len(stale), "applied", apply)
	return stale, nil
}
