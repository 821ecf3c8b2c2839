package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/opengrants/councild/internal/adapter/otel"
	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/port/oracle"
)

// DeliberationService runs the bounded deliberation rounds: each panelist
// sees the others' positions anonymized and may revise their own. A revision
// only sticks if its score delta clears the change threshold.
type DeliberationService struct {
	oracle    oracle.Oracle
	panelists []council.Panelist
	cfg       config.Council
	metrics   *otel.Metrics
}

// NewDeliberationService creates a DeliberationService.
func NewDeliberationService(o oracle.Oracle, cfg config.Council, metrics *otel.Metrics) *DeliberationService {
	return &DeliberationService{
		oracle:    o,
		panelists: cfg.Panelists,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Deliberate runs up to MaxRounds rounds over the given positions and returns
// the final position set plus the number of rounds actually executed. A round
// with zero accepted revisions ends deliberation early: positions have
// converged and further rounds cannot change them.
func (s *DeliberationService) Deliberate(ctx context.Context, p *proposal.Proposal, positions []council.Position) ([]council.Position, int) {
	rounds := 0
	for round := 1; round <= s.cfg.MaxRounds; round++ {
		rounds = round
		revised := s.runRound(ctx, p, positions, round)
		if revised == 0 {
			slog.Info("deliberation converged", "proposal_id", p.ID, "round", round)
			break
		}
	}
	return positions, rounds
}

// runRound executes one deliberation round in place and returns the number of
// accepted revisions. All panelists see the same pre-round snapshot; revisions
// land only after every turn in the round has finished.
func (s *DeliberationService) runRound(ctx context.Context, p *proposal.Proposal, positions []council.Position, round int) int {
	snapshot := make([]council.Position, len(positions))
	copy(snapshot, positions)

	revisions := make([]*council.Revision, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	for i := range positions {
		i := i
		g.Go(func() error {
			pan, ok := s.panelistByID(positions[i].PanelistID)
			if !ok {
				return nil
			}
			rev, err := s.deliberateOne(gctx, pan, p, snapshot, i, round)
			if err != nil {
				// The pre-round position stands when a turn fails.
				slog.Error("deliberation turn failed",
					"panelist_id", positions[i].PanelistID, "proposal_id", p.ID, "round", round, "error", err)
				return nil
			}
			revisions[i] = rev
			return nil
		})
	}
	_ = g.Wait()

	accepted := 0
	for i, rev := range revisions {
		if rev == nil || !rev.Revised {
			continue
		}
		if !rev.Material(positions[i], s.cfg.ChangeThreshold) {
			slog.Info("revision below change threshold, keeping prior position",
				"panelist_id", positions[i].PanelistID, "proposal_id", p.ID, "round", round,
				"old_score", positions[i].Score, "new_score", rev.Score)
			continue
		}
		slog.Info("revision accepted",
			"panelist_id", positions[i].PanelistID, "proposal_id", p.ID, "round", round,
			"old_score", positions[i].Score, "new_score", rev.Score)
		positions[i] = rev.Apply(positions[i], round)
		if s.metrics != nil {
			s.metrics.RevisionsAccepted.Add(ctx, 1)
		}
		accepted++
	}
	return accepted
}

// deliberateOne asks one panelist to reconsider against the peer snapshot.
func (s *DeliberationService) deliberateOne(ctx context.Context, pan council.Panelist, p *proposal.Proposal, snapshot []council.Position, self, round int) (*council.Revision, error) {
	peers := make([]council.Position, 0, len(snapshot)-1)
	for i := range snapshot {
		if i != self {
			peers = append(peers, snapshot[i])
		}
	}

	system, user := buildDeliberationPrompt(pan, p, snapshot[self], peers, round)
	resp, err := s.oracle.Ask(ctx, oracle.Request{
		Model:       pan.Model,
		Temperature: s.cfg.DeliberateTemperature,
		Messages: []oracle.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}, deliberationSchema())
	if err != nil {
		return nil, err
	}

	var rev council.Revision
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &rev); err != nil {
		return nil, fmt.Errorf("parse revision: %w", err)
	}
	return &rev, nil
}

func (s *DeliberationService) panelistByID(id string) (council.Panelist, bool) {
	for _, pan := range s.panelists {
		if pan.ID == id {
			return pan, true
		}
	}
	return council.Panelist{}, false
}
