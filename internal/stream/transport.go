package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
)

// PriceUpdate is one tick from the upstream price stream. The same shape is
// forwarded verbatim to downstream websocket consumers.
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct,omitempty"`
	At        time.Time `json:"at"`
}

// Transport is the streaming connection the subscription manager drives.
// Implementations own connect/reconnect; the manager owns which symbols
// should be live.
type Transport interface {
	Subscribe(symbols []string) error
	Unsubscribe(symbols []string) error
	Updates() <-chan PriceUpdate
	Close() error
}

// controlMessage is the subscribe/unsubscribe frame sent upstream.
type controlMessage struct {
	Method string   `json:"method"` // SUBSCRIBE, UNSUBSCRIBE
	Params []string `json:"params"`
}

// WSTransport implements Transport over a websocket with auto-reconnect.
// It remembers every symbol it was asked to subscribe and re-issues the
// whole set after each reconnect, so the manager's logical subscription set
// survives connection loss.
type WSTransport struct {
	url               string
	reconnectInterval time.Duration

	connMu sync.RWMutex
	conn   *websocket.Conn

	subsMu sync.Mutex
	subs   map[string]bool

	updates chan PriceUpdate
	quit    chan struct{}
	once    sync.Once
}

func NewWSTransport(url string, reconnectInterval time.Duration) *WSTransport {
	if reconnectInterval <= 0 {
		reconnectInterval = 5 * time.Second
	}
	t := &WSTransport{
		url:               url,
		reconnectInterval: reconnectInterval,
		subs:              make(map[string]bool),
		updates:           make(chan PriceUpdate, 1024),
		quit:              make(chan struct{}),
	}
	go t.run()
	return t
}

// run manages connection and reconnection.
func (t *WSTransport) run() {
	for {
		select {
		case <-t.quit:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
		if err != nil {
			logger.Warn().Err(err).Str("url", t.url).Dur("retry_in", t.reconnectInterval).Msg("Price stream dial failed")
			select {
			case <-t.quit:
				return
			case <-time.After(t.reconnectInterval):
			}
			continue
		}

		t.connMu.Lock()
		t.conn = conn
		t.connMu.Unlock()

		t.resubscribe(conn)
		t.readLoop(conn)
	}
}

func (t *WSTransport) resubscribe(conn *websocket.Conn) {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()

	if len(t.subs) == 0 {
		return
	}
	symbols := make([]string, 0, len(t.subs))
	for s := range t.subs {
		symbols = append(symbols, s)
	}
	if err := conn.WriteJSON(controlMessage{Method: "SUBSCRIBE", Params: symbols}); err != nil {
		logger.Warn().Err(err).Msg("Failed to resubscribe after reconnect")
	}
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		var update PriceUpdate
		if err := conn.ReadJSON(&update); err != nil {
			select {
			case <-t.quit:
			default:
				logger.Warn().Err(err).Msg("Price stream read failed, reconnecting")
			}
			return
		}
		if update.At.IsZero() {
			update.At = time.Now()
		}
		// Drop on overflow rather than stalling the read loop.
		select {
		case t.updates <- update:
		default:
		}
	}
}

func (t *WSTransport) send(method string, symbols []string) error {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	if t.conn == nil {
		// Not connected yet; the pending set is replayed on connect.
		return nil
	}
	return t.conn.WriteJSON(controlMessage{Method: method, Params: symbols})
}

func (t *WSTransport) Subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	t.subsMu.Lock()
	for _, s := range symbols {
		t.subs[s] = true
	}
	t.subsMu.Unlock()
	return t.send("SUBSCRIBE", symbols)
}

func (t *WSTransport) Unsubscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	t.subsMu.Lock()
	for _, s := range symbols {
		delete(t.subs, s)
	}
	t.subsMu.Unlock()
	return t.send("UNSUBSCRIBE", symbols)
}

func (t *WSTransport) Updates() <-chan PriceUpdate {
	return t.updates
}

func (t *WSTransport) Close() error {
	t.once.Do(func() {
		close(t.quit)
		t.connMu.Lock()
		if t.conn != nil {
			t.conn.Close()
		}
		t.connMu.Unlock()
	})
	return nil
}

var _ Transport = (*WSTransport)(nil)
