package staking

import (
	"context"
	"sort"
	"sync"
)

// DefaultPlans is the seed plan catalog used by the in-memory store and
// mirrored by migrations/schema.sql.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:             "flex",
			Name:           "Flexible Staking",
			APY:            4.5,
			LockPeriodDays: 0,
			MinAmount:      10,
			SupportedCoins: []string{"bitcoin", "ethereum", "solana", "cardano", "polkadot"},
		},
		{
			ID:             "locked-30",
			Name:           "30-Day Lock",
			APY:            7,
			LockPeriodDays: 30,
			MinAmount:      50,
			SupportedCoins: []string{"bitcoin", "ethereum", "solana", "cardano", "polkadot", "avalanche-2"},
		},
		{
			ID:             "locked-90",
			Name:           "90-Day Lock",
			APY:            10,
			LockPeriodDays: 90,
			MinAmount:      100,
			SupportedCoins: []string{"bitcoin", "ethereum", "solana", "cardano", "polkadot", "avalanche-2"},
		},
		{
			ID:             "locked-365",
			Name:           "1-Year Lock",
			APY:            15,
			LockPeriodDays: 365,
			MinAmount:      500,
			MaxAmount:      1000000,
			SupportedCoins: []string{"bitcoin", "ethereum"},
		},
	}
}

// MemoryStore keeps everything in process. It backs tests and the
// no-database development mode.
type MemoryStore struct {
	mu        sync.RWMutex
	plans     map[string]Plan
	planOrder []string
	positions map[string]Position // positionID -> position
	inserted  []string            // position insert order
	rewards   map[string][]Reward // positionID -> ledger, append order
}

func NewMemoryStore(plans []Plan) *MemoryStore {
	if plans == nil {
		plans = DefaultPlans()
	}
	m := &MemoryStore{
		plans:     make(map[string]Plan, len(plans)),
		positions: make(map[string]Position),
		rewards:   make(map[string][]Reward),
	}
	for _, p := range plans {
		m.plans[p.ID] = p
		m.planOrder = append(m.planOrder, p.ID)
	}
	return m
}

func (m *MemoryStore) ListPlans(_ context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Plan, 0, len(m.planOrder))
	for _, id := range m.planOrder {
		out = append(out, m.plans[id])
	}
	return out, nil
}

func (m *MemoryStore) GetPlan(_ context.Context, planID string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[planID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) InsertPosition(_ context.Context, p *Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions[p.ID] = *p
	m.inserted = append(m.inserted, p.ID)
	return nil
}

func (m *MemoryStore) GetPosition(_ context.Context, positionID string) (*Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.positions[positionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) ListPositions(_ context.Context, userID string) ([]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Position
	for _, id := range m.inserted {
		p := m.positions[id]
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *MemoryStore) ListActivePositions(_ context.Context) ([]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Position
	for _, id := range m.inserted {
		if p := m.positions[id]; p.Status == StatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdatePosition(_ context.Context, p *Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions[p.ID] = *p
	return nil
}

func (m *MemoryStore) InsertReward(_ context.Context, r *Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rewards[r.PositionID] = append(m.rewards[r.PositionID], *r)
	return nil
}

func (m *MemoryStore) ListRewards(_ context.Context, positionID string) ([]Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Reward, len(m.rewards[positionID]))
	copy(out, m.rewards[positionID])
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
