package postgres

import (
	"context"

	"github.com/opengrants/councild/internal/domain/team"
)

const teamColumns = `
	id, canonical_name, aliases, wallet_addresses, proposal_ids,
	successful_grants, failed_grants, total_funded, milestone_completion_rate,
	created_at, updated_at`

// GetTeam retrieves a team profile by ID.
func (s *Store) GetTeam(ctx context.Context, id string) (*team.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)

	t, err := scanTeam(row)
	if err != nil {
		return nil, notFoundWrap(err, "get team %s", id)
	}
	return t, nil
}

// FindTeamByName retrieves a team whose canonical name or aliases match,
// case-insensitively.
func (s *Store) FindTeamByName(ctx context.Context, name string) (*team.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams
		 WHERE lower(canonical_name) = lower($1)
		    OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) = lower($1))
		 LIMIT 1`, name)

	t, err := scanTeam(row)
	if err != nil {
		return nil, notFoundWrap(err, "find team by name %q", name)
	}
	return t, nil
}

// FindTeamByWallet retrieves a team owning the given wallet address.
func (s *Store) FindTeamByWallet(ctx context.Context, wallet string) (*team.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE $1 = ANY(wallet_addresses) LIMIT 1`, wallet)

	t, err := scanTeam(row)
	if err != nil {
		return nil, notFoundWrap(err, "find team by wallet %s", wallet)
	}
	return t, nil
}

func scanTeam(row scannable) (*team.Profile, error) {
	var t team.Profile
	err := row.Scan(
		&t.ID, &t.CanonicalName, &t.Aliases, &t.WalletAddresses, &t.ProposalIDs,
		&t.SuccessfulGrants, &t.FailedGrants, &t.TotalFunded, &t.MilestoneCompletionRate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
