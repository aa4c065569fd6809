package stream

import (
	"sync"

	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
	"github.com/ZILLABB/cryptonested-sub001/pkg/metrics"
)

// Handler receives every price update for every live symbol. Broadcast is
// per-symbol, not per-subscriber: a handler sees updates for symbols other
// callers subscribed too.
type Handler func(PriceUpdate)

// Manager deduplicates symbol subscriptions across concurrent consumers.
// Each symbol carries a reference count; only the 0->1 transition issues an
// upstream subscribe and only the 1->0 transition issues an unsubscribe, so
// one underlying subscription serves any number of consumers.
type Manager struct {
	transport Transport

	mu       sync.Mutex
	refs     map[string]int
	handlers map[int]Handler
	nextID   int

	done chan struct{}
	once sync.Once
}

func NewManager(transport Transport) *Manager {
	m := &Manager{
		transport: transport,
		refs:      make(map[string]int),
		handlers:  make(map[int]Handler),
		done:      make(chan struct{}),
	}
	go m.pump()
	return m
}

// pump broadcasts transport updates to every registered handler.
func (m *Manager) pump() {
	for {
		select {
		case <-m.done:
			return
		case update, ok := <-m.transport.Updates():
			if !ok {
				return
			}
			metrics.RecordPriceUpdate()

			m.mu.Lock()
			handlers := make([]Handler, 0, len(m.handlers))
			for _, h := range m.handlers {
				handlers = append(handlers, h)
			}
			m.mu.Unlock()

			for _, h := range handlers {
				h(update)
			}
		}
	}
}

// Subscribe increments each symbol's reference count. Symbols moving from
// count 0 to 1 are subscribed upstream; everything else is already live.
// The transport call happens under the lock so a 0->1 subscribe and a
// concurrent 1->0 unsubscribe of the same symbol reach the transport in
// transition order.
func (m *Manager) Subscribe(symbols ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fresh []string
	for _, s := range symbols {
		if m.refs[s] == 0 {
			fresh = append(fresh, s)
		}
		m.refs[s]++
	}
	metrics.SetSubscribedSymbols(len(m.refs))

	if len(fresh) == 0 {
		return nil
	}
	return m.transport.Subscribe(fresh)
}

// Unsubscribe decrements each symbol's reference count. Only symbols
// reaching count 0 are unsubscribed upstream; an unsubscribe of an unknown
// symbol is ignored.
func (m *Manager) Unsubscribe(symbols ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dead []string
	for _, s := range symbols {
		count, ok := m.refs[s]
		if !ok {
			continue
		}
		if count <= 1 {
			delete(m.refs, s)
			dead = append(dead, s)
		} else {
			m.refs[s] = count - 1
		}
	}
	metrics.SetSubscribedSymbols(len(m.refs))

	if len(dead) == 0 {
		return nil
	}
	return m.transport.Unsubscribe(dead)
}

// AddHandler registers a broadcast handler and returns its removal token.
func (m *Manager) AddHandler(h Handler) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.handlers[id] = h
	return id
}

// RemoveHandler drops a previously registered handler.
func (m *Manager) RemoveHandler(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, id)
}

// Snapshot returns a copy of the current reference counts.
func (m *Manager) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.refs))
	for s, c := range m.refs {
		out[s] = c
	}
	return out
}

// Close stops the broadcast pump and closes the transport.
func (m *Manager) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		err = m.transport.Close()
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to close price stream transport")
	}
	return err
}
