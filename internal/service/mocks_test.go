package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/opengrants/councild/internal/domain"
	"github.com/opengrants/councild/internal/domain/council"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/domain/proposal"
	"github.com/opengrants/councild/internal/domain/team"
	"github.com/opengrants/councild/internal/port/database"
	"github.com/opengrants/councild/internal/port/messagequeue"
	"github.com/opengrants/councild/internal/port/oracle"
)

// mockStore is an in-memory database.Store. Safe for the concurrent access
// the evaluation fan-out produces.
type mockStore struct {
	mu           sync.Mutex
	proposals    map[string]*proposal.Proposal
	decisions    map[string]*council.Decision
	observations map[string]*observation.Observation
	teams        map[string]*team.Profile

	statusLog []proposal.Status
	nextID    int
}

func newMockStore() *mockStore {
	return &mockStore{
		proposals:    map[string]*proposal.Proposal{},
		decisions:    map[string]*council.Decision{},
		observations: map[string]*observation.Observation{},
		teams:        map[string]*team.Profile{},
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) CreateProposal(_ context.Context, p *proposal.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.id("prop")
	}
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *mockStore) GetProposal(_ context.Context, id string) (*proposal.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, fmt.Errorf("get proposal %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) ListProposals(_ context.Context, f database.ProposalFilter) ([]proposal.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []proposal.Proposal
	for _, p := range m.proposals {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockStore) UpdateProposalStatus(_ context.Context, id string, status proposal.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return fmt.Errorf("update proposal %s: %w", id, domain.ErrNotFound)
	}
	p.Status = status
	m.statusLog = append(m.statusLog, status)
	return nil
}

func (m *mockStore) CreateDecision(_ context.Context, d *council.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = m.id("dec")
	}
	cp := *d
	m.decisions[d.ID] = &cp
	return nil
}

func (m *mockStore) GetDecision(_ context.Context, id string) (*council.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decisions[id]
	if !ok {
		return nil, fmt.Errorf("get decision %s: %w", id, domain.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *mockStore) GetDecisionForProposal(_ context.Context, proposalID string) (*council.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.decisions {
		if d.ProposalID == proposalID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("decision for proposal %s: %w", proposalID, domain.ErrNotFound)
}

func (m *mockStore) ListDecisions(_ context.Context, _ int) ([]council.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []council.Decision
	for _, d := range m.decisions {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockStore) UpdateDecisionHuman(_ context.Context, d *council.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.decisions[d.ID]
	if !ok {
		return fmt.Errorf("update decision %s: %w", d.ID, domain.ErrNotFound)
	}
	stored.HumanDecision = d.HumanDecision
	stored.HumanRationale = d.HumanRationale
	stored.HumanReviewer = d.HumanReviewer
	stored.DecidedAt = d.DecidedAt
	return nil
}

func (m *mockStore) CreateObservation(_ context.Context, o *observation.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = m.id("obs")
	}
	cp := *o
	m.observations[o.ID] = &cp
	return nil
}

func (m *mockStore) GetObservation(_ context.Context, id string) (*observation.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.observations[id]
	if !ok {
		return nil, fmt.Errorf("get observation %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) ListObservations(_ context.Context, f database.ObservationFilter) ([]observation.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []observation.Observation
	for _, o := range m.observations {
		if f.PanelistID != "" && o.PanelistID != f.PanelistID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockStore) UpdateObservation(_ context.Context, o *observation.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.observations[o.ID]; !ok {
		return fmt.Errorf("update observation %s: %w", o.ID, domain.ErrNotFound)
	}
	cp := *o
	m.observations[o.ID] = &cp
	return nil
}

func (m *mockStore) IncrementObservationUsage(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if o, ok := m.observations[id]; ok {
			o.TimesUsed++
		}
	}
	return nil
}

func (m *mockStore) GetTeam(_ context.Context, id string) (*team.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, fmt.Errorf("get team %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) FindTeamByName(_ context.Context, name string) (*team.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.CanonicalName == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find team %q: %w", name, domain.ErrNotFound)
}

func (m *mockStore) FindTeamByWallet(_ context.Context, wallet string) (*team.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		for _, w := range t.WalletAddresses {
			if w == wallet {
				cp := *t
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("find team by wallet: %w", domain.ErrNotFound)
}

// mockOracle scripts responses per call. ask receives the outgoing request
// and returns the raw content string.
type mockOracle struct {
	mu    sync.Mutex
	ask   func(req oracle.Request, schema map[string]string) (string, error)
	judge func(req oracle.Request) (string, error)
	calls []oracle.Request
}

func (m *mockOracle) Judge(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.judge == nil {
		return &oracle.Response{Content: "synthesized text"}, nil
	}
	content, err := m.judge(req)
	if err != nil {
		return nil, err
	}
	return &oracle.Response{Content: content}, nil
}

func (m *mockOracle) Ask(_ context.Context, req oracle.Request, schema map[string]string) (*oracle.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.ask == nil {
		return nil, fmt.Errorf("mockOracle.ask not scripted")
	}
	content, err := m.ask(req, schema)
	if err != nil {
		return nil, err
	}
	return &oracle.Response{Content: content}, nil
}

// mockQueue records published messages.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: map[string][][]byte{}}
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[subject] = append(m.published[subject], data)
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }
