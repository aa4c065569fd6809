package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ZILLABB/cryptonested-sub001/internal/stream"
)

// hubTransport records control calls and lets tests inject price updates.
type hubTransport struct {
	mu           sync.Mutex
	subscribed   [][]string
	unsubscribed [][]string
	updates      chan stream.PriceUpdate
}

func newHubTransport() *hubTransport {
	return &hubTransport{updates: make(chan stream.PriceUpdate, 16)}
}

func (f *hubTransport) Subscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, append([]string(nil), symbols...))
	return nil
}

func (f *hubTransport) Unsubscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, append([]string(nil), symbols...))
	return nil
}

func (f *hubTransport) Updates() <-chan stream.PriceUpdate { return f.updates }

func (f *hubTransport) Close() error { return nil }

func (f *hubTransport) unsubscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unsubscribed)
}

func newTestHub(t *testing.T) (*Hub, *hubTransport) {
	t.Helper()
	transport := newHubTransport()
	manager := stream.NewManager(transport)
	hub := NewHub(manager)
	go hub.Run()
	t.Cleanup(func() {
		hub.Stop()
		manager.Close()
	})
	return hub, transport
}

func registerClient(hub *Hub, id string) *Client {
	client := NewClient(id, nil, hub)
	hub.Register(client)
	return client
}

func recvMessage(t *testing.T, client *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-client.Send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame")
		return ServerMessage{}
	}
}

func TestHubRoutesUpdatesToInterestedClients(t *testing.T) {
	hub, transport := newTestHub(t)

	watcher := registerClient(hub, "watcher")
	bystander := registerClient(hub, "bystander")

	hub.Subscribe(watcher, []string{"btcusdt"})
	hub.Subscribe(bystander, []string{"ethusdt"})

	transport.updates <- stream.PriceUpdate{Symbol: "btcusdt", Price: 61000, At: time.Now()}

	msg := recvMessage(t, watcher)
	if msg.Type != MsgTypePrice || msg.Symbol != "btcusdt" {
		t.Fatalf("got frame %+v, want price frame for btcusdt", msg)
	}

	select {
	case data := <-bystander.Send:
		t.Fatalf("bystander received unexpected frame: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubSharesOneUpstreamSubscription(t *testing.T) {
	hub, transport := newTestHub(t)

	first := registerClient(hub, "first")
	second := registerClient(hub, "second")

	hub.Subscribe(first, []string{"btcusdt"})
	hub.Subscribe(second, []string{"btcusdt"})

	// Both clients hold a reference, so dropping one must not touch the
	// upstream feed.
	hub.Unsubscribe(first, []string{"btcusdt"})
	if n := transport.unsubscribeCalls(); n != 0 {
		t.Fatalf("upstream unsubscribed %d times with a client still watching", n)
	}

	transport.updates <- stream.PriceUpdate{Symbol: "btcusdt", Price: 61000, At: time.Now()}
	msg := recvMessage(t, second)
	if msg.Symbol != "btcusdt" {
		t.Fatalf("remaining client got frame for %q", msg.Symbol)
	}

	hub.Unsubscribe(second, []string{"btcusdt"})
	if n := transport.unsubscribeCalls(); n != 1 {
		t.Fatalf("upstream unsubscribe calls = %d, want 1", n)
	}
}

func TestHubReleasesSubscriptionsOnDisconnect(t *testing.T) {
	hub, transport := newTestHub(t)

	client := registerClient(hub, "leaver")
	hub.Subscribe(client, []string{"btcusdt", "ethusdt"})

	hub.unregister <- client

	deadline := time.After(2 * time.Second)
	for transport.unsubscribeCalls() == 0 {
		select {
		case <-deadline:
			t.Fatalf("disconnect never released upstream subscriptions")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubSubscribeIsIdempotentPerClient(t *testing.T) {
	hub, transport := newTestHub(t)

	client := registerClient(hub, "repeat")
	hub.Subscribe(client, []string{"btcusdt"})
	hub.Subscribe(client, []string{"btcusdt"})

	// A single client holds one reference however many times it asks, so
	// one unsubscribe releases the symbol upstream.
	hub.Unsubscribe(client, []string{"btcusdt"})
	if n := transport.unsubscribeCalls(); n != 1 {
		t.Fatalf("upstream unsubscribe calls = %d, want 1", n)
	}
}

func TestHubDisconnectAfterStopDoesNotBlock(t *testing.T) {
	transport := newHubTransport()
	manager := stream.NewManager(transport)
	defer manager.Close()

	hub := NewHub(manager)
	go hub.Run()

	client := registerClient(hub, "late-leaver")
	hub.Subscribe(client, []string{"btcusdt"})

	hub.Stop()

	done := make(chan struct{})
	go func() {
		client.disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("disconnect blocked after the hub stopped")
	}
}
