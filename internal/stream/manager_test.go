package stream

import (
	"sync"
	"testing"
	"time"
)

// fakeTransport records control calls in arrival order and lets tests
// inject updates.
type fakeTransport struct {
	mu           sync.Mutex
	subscribed   [][]string
	unsubscribed [][]string
	ops          []transportOp
	updates      chan PriceUpdate
	closed       bool
}

type transportOp struct {
	subscribe bool
	symbols   []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{updates: make(chan PriceUpdate, 16)}
}

func (f *fakeTransport) Subscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbols = append([]string(nil), symbols...)
	f.subscribed = append(f.subscribed, symbols)
	f.ops = append(f.ops, transportOp{subscribe: true, symbols: symbols})
	return nil
}

func (f *fakeTransport) Unsubscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbols = append([]string(nil), symbols...)
	f.unsubscribed = append(f.unsubscribed, symbols)
	f.ops = append(f.ops, transportOp{subscribe: false, symbols: symbols})
	return nil
}

func (f *fakeTransport) Updates() <-chan PriceUpdate { return f.updates }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) subscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribed)
}

func (f *fakeTransport) unsubscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unsubscribed)
}

func TestManagerDeduplicatesSubscriptions(t *testing.T) {
	transport := newFakeTransport()
	m := NewManager(transport)
	defer m.Close()

	// Two independent consumers want btc; only the first reaches upstream.
	if err := m.Subscribe("btc"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := m.Subscribe("btc"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got := transport.subscribeCalls(); got != 1 {
		t.Fatalf("upstream subscribe calls = %d, want 1", got)
	}

	// One consumer leaves; the subscription must stay alive.
	if err := m.Unsubscribe("btc"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if got := transport.unsubscribeCalls(); got != 0 {
		t.Fatalf("upstream unsubscribe calls = %d, want 0 while a consumer remains", got)
	}
	if m.Snapshot()["btc"] != 1 {
		t.Fatalf("refcount = %d, want 1", m.Snapshot()["btc"])
	}

	// Last consumer leaves; now the upstream subscription is released.
	if err := m.Unsubscribe("btc"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if got := transport.unsubscribeCalls(); got != 1 {
		t.Fatalf("upstream unsubscribe calls = %d, want 1", got)
	}
	if _, ok := m.Snapshot()["btc"]; ok {
		t.Fatal("symbol still tracked after last unsubscribe")
	}
}

func TestManagerUnsubscribeUnknownSymbol(t *testing.T) {
	transport := newFakeTransport()
	m := NewManager(transport)
	defer m.Close()

	if err := m.Unsubscribe("never-subscribed"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if got := transport.unsubscribeCalls(); got != 0 {
		t.Fatalf("upstream unsubscribe calls = %d, want 0", got)
	}
}

func TestManagerBatchesFreshSymbolsOnly(t *testing.T) {
	transport := newFakeTransport()
	m := NewManager(transport)
	defer m.Close()

	if err := m.Subscribe("btc", "eth"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := m.Subscribe("eth", "sol"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.subscribed) != 2 {
		t.Fatalf("subscribe calls = %d, want 2", len(transport.subscribed))
	}
	if len(transport.subscribed[1]) != 1 || transport.subscribed[1][0] != "sol" {
		t.Fatalf("second subscribe sent %v, want [sol] only", transport.subscribed[1])
	}
}

func TestManagerBroadcastsToAllHandlers(t *testing.T) {
	transport := newFakeTransport()
	m := NewManager(transport)
	defer m.Close()

	got := make(chan PriceUpdate, 4)
	m.AddHandler(func(u PriceUpdate) { got <- u })
	second := m.AddHandler(func(u PriceUpdate) { got <- u })

	transport.updates <- PriceUpdate{Symbol: "btc", Price: 64000}

	for i := 0; i < 2; i++ {
		select {
		case u := <-got:
			if u.Symbol != "btc" || u.Price != 64000 {
				t.Fatalf("handler got %+v", u)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("handler %d never received the update", i)
		}
	}

	// A removed handler stops receiving.
	m.RemoveHandler(second)
	transport.updates <- PriceUpdate{Symbol: "eth", Price: 2500}

	select {
	case u := <-got:
		if u.Symbol != "eth" {
			t.Fatalf("got %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler never received the update")
	}
	select {
	case u := <-got:
		t.Fatalf("removed handler still received %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManagerConcurrentSubscribeUnsubscribe(t *testing.T) {
	transport := newFakeTransport()
	m := NewManager(transport)
	defer m.Close()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Subscribe("btc")
				_ = m.Unsubscribe("btc")
			}
		}()
	}
	wg.Wait()

	if count, ok := m.Snapshot()["btc"]; ok {
		t.Fatalf("refcount = %d after balanced subscribe/unsubscribe, want symbol gone", count)
	}

	// The transport must see the 0->1 and 1->0 transitions in order:
	// replaying its call log, a symbol is never unsubscribed while dead and
	// never re-subscribed while live, and nothing stays live at the end.
	transport.mu.Lock()
	defer transport.mu.Unlock()
	live := make(map[string]bool)
	for i, op := range transport.ops {
		for _, s := range op.symbols {
			if op.subscribe && live[s] {
				t.Fatalf("op %d re-subscribed %q while already live", i, s)
			}
			if !op.subscribe && !live[s] {
				t.Fatalf("op %d unsubscribed %q while not live", i, s)
			}
			live[s] = op.subscribe
		}
	}
	for s, on := range live {
		if on {
			t.Fatalf("symbol %q left live upstream after all consumers left", s)
		}
	}
}
