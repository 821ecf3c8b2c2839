package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/opengrants/councild/internal/domain"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/domain/team"
	"github.com/opengrants/councild/internal/port/database"
)

// profileCache is the small cache surface TeamService needs. Implemented by
// the ristretto adapter.
type profileCache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TeamService resolves applicant identity and serves reputation context to
// the council. Profiles sit on the evaluation hot path, so lookups go through
// an in-process cache.
type TeamService struct {
	store database.Store
	cache profileCache
	ttl   time.Duration
}

// NewTeamService creates a TeamService. cache may be nil to disable caching.
func NewTeamService(store database.Store, cache profileCache, ttl time.Duration) *TeamService {
	return &TeamService{store: store, cache: cache, ttl: ttl}
}

// ContextFor resolves the applicant team behind a proposal and returns its
// reputation context. An unknown team returns nil context, not an error:
// first-time applicants are the common case.
func (s *TeamService) ContextFor(ctx context.Context, p *proposal.Proposal) (*team.Context, error) {
	profile, err := s.resolve(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return team.ContextOf(profile), nil
}

// Get retrieves a team profile by ID, through the cache.
func (s *TeamService) Get(ctx context.Context, id string) (*team.Profile, error) {
	return s.cached(ctx, "team:id:"+id, func() (*team.Profile, error) {
		return s.store.GetTeam(ctx, id)
	})
}

// resolve matches a proposal to a team profile by explicit ID, then canonical
// name or alias, then any team member wallet address.
func (s *TeamService) resolve(ctx context.Context, p *proposal.Proposal) (*team.Profile, error) {
	if p.TeamID != "" {
		return s.Get(ctx, p.TeamID)
	}

	profile, err := s.cached(ctx, "team:name:"+p.TeamName, func() (*team.Profile, error) {
		return s.store.FindTeamByName(ctx, p.TeamName)
	})
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for _, m := range p.TeamMembers {
		if m.WalletAddress == "" {
			continue
		}
		profile, err := s.store.FindTeamByWallet(ctx, m.WalletAddress)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrNotFound
}

// cached wraps a profile lookup with the in-process cache. Cache failures are
// logged and bypassed.
func (s *TeamService) cached(ctx context.Context, key string, load func() (*team.Profile, error)) (*team.Profile, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var t team.Profile
			if err := json.Unmarshal(data, &t); err == nil {
				return &t, nil
			}
		}
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(t); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				slog.Debug("team cache set failed", "key", key, "error", err)
			}
		}
	}
	return t, nil
}
