package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. It backs tests and the
// no-database development mode.
type MemoryStore struct {
	mu           sync.RWMutex
	holdings     map[string]map[string]Holding // userID -> coinID -> holding
	transactions map[string][]Transaction      // userID -> ledger, append order
	snapshots    map[string][]Snapshot         // userID -> series, append order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		holdings:     make(map[string]map[string]Holding),
		transactions: make(map[string][]Transaction),
		snapshots:    make(map[string][]Snapshot),
	}
}

func (m *MemoryStore) ListHoldings(_ context.Context, userID string) ([]Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Holding, 0, len(m.holdings[userID]))
	for _, h := range m.holdings[userID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CoinID < out[j].CoinID })
	return out, nil
}

func (m *MemoryStore) GetHolding(_ context.Context, userID, coinID string) (*Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.holdings[userID][coinID]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *MemoryStore) UpsertHolding(_ context.Context, h *Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holdings[h.UserID] == nil {
		m.holdings[h.UserID] = make(map[string]Holding)
	}
	m.holdings[h.UserID][h.CoinID] = *h
	return nil
}

func (m *MemoryStore) DeleteHolding(_ context.Context, userID, coinID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.holdings[userID], coinID)
	return nil
}

func (m *MemoryStore) InsertTransaction(_ context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], *tx)
	return nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, userID string, limit int) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ledger := m.transactions[userID]
	// Newest first.
	out := make([]Transaction, 0, len(ledger))
	for i := len(ledger) - 1; i >= 0; i-- {
		out = append(out, ledger[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertSnapshot(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[s.UserID] = append(m.snapshots[s.UserID], *s)
	return nil
}

func (m *MemoryStore) ListSnapshots(_ context.Context, userID string, since time.Time) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0)
	for _, s := range m.snapshots[userID] {
		if !s.TakenAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

func (m *MemoryStore) ListUsersWithHoldings(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]string, 0, len(m.holdings))
	for userID, byCoin := range m.holdings {
		if len(byCoin) > 0 {
			users = append(users, userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

var _ Store = (*MemoryStore)(nil)
