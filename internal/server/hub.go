package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/ZILLABB/cryptonested-sub001/internal/stream"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
)

// Websocket message types.
const (
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypePrice       = "price"
	MsgTypeError       = "error"
	MsgTypePing        = "ping"
	MsgTypePong        = "pong"
)

// ClientMessage is a control frame from a browser client.
type ClientMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
}

// ServerMessage is a frame sent to a browser client.
type ServerMessage struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Hub fans live price updates out to browser websocket clients. Each client
// counts as one consumer against the subscription manager, so the upstream
// feed follows the union of all connected clients' interests.
type Hub struct {
	manager *stream.Manager

	mu      sync.RWMutex
	clients map[*Client]bool
	symbols map[string]map[*Client]bool // symbol -> interested clients

	broadcast  chan *ServerMessage
	register   chan *Client
	unregister chan *Client

	handlerID int
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewHub(manager *stream.Manager) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		manager:    manager,
		clients:    make(map[*Client]bool),
		symbols:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *ServerMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
	h.handlerID = manager.AddHandler(h.onPriceUpdate)
	return h
}

func (h *Hub) onPriceUpdate(update stream.PriceUpdate) {
	msg := &ServerMessage{
		Type:      MsgTypePrice,
		Symbol:    update.Symbol,
		Data:      update,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	select {
	case h.broadcast <- msg:
	default:
		// Broadcast channel full, skip.
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info().Str("client_id", client.ID).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.drop(client)
			logger.Info().Str("client_id", client.ID).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients, ok := h.symbols[message.Symbol]
			if !ok || len(clients) == 0 {
				h.mu.RUnlock()
				continue
			}
			data, err := json.Marshal(message)
			if err != nil {
				h.mu.RUnlock()
				logger.Error().Err(err).Msg("Failed to marshal broadcast message")
				continue
			}
			for client := range clients {
				select {
				case client.Send <- data:
				default:
					// Client buffer full, skip.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop releases the hub's handler and stops the main loop.
func (h *Hub) Stop() {
	h.manager.RemoveHandler(h.handlerID)
	h.cancel()
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.Send)

	var released []string
	for symbol := range client.Symbols {
		if clients, ok := h.symbols[symbol]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.symbols, symbol)
			}
		}
		released = append(released, symbol)
	}
	h.mu.Unlock()

	// Release this client's refcounts so symbols nobody watches anymore
	// drop off the upstream feed.
	if len(released) > 0 {
		if err := h.manager.Unsubscribe(released...); err != nil {
			logger.Warn().Err(err).Msg("Failed to release subscriptions for disconnected client")
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Subscribe adds symbols to a client's interest set.
func (h *Hub) Subscribe(client *Client, symbols []string) {
	h.mu.Lock()
	var fresh []string
	for _, symbol := range symbols {
		if client.Symbols[symbol] {
			continue
		}
		client.Symbols[symbol] = true
		if _, ok := h.symbols[symbol]; !ok {
			h.symbols[symbol] = make(map[*Client]bool)
		}
		h.symbols[symbol][client] = true
		fresh = append(fresh, symbol)
	}
	h.mu.Unlock()

	if len(fresh) > 0 {
		if err := h.manager.Subscribe(fresh...); err != nil {
			logger.Warn().Err(err).Strs("symbols", fresh).Msg("Upstream subscribe failed")
		}
	}
	logger.Info().Str("client_id", client.ID).Strs("symbols", symbols).Msg("Client subscribed")
}

// Unsubscribe removes symbols from a client's interest set.
func (h *Hub) Unsubscribe(client *Client, symbols []string) {
	h.mu.Lock()
	var released []string
	for _, symbol := range symbols {
		if !client.Symbols[symbol] {
			continue
		}
		delete(client.Symbols, symbol)
		if clients, ok := h.symbols[symbol]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.symbols, symbol)
			}
		}
		released = append(released, symbol)
	}
	h.mu.Unlock()

	if len(released) > 0 {
		if err := h.manager.Unsubscribe(released...); err != nil {
			logger.Warn().Err(err).Strs("symbols", released).Msg("Upstream unsubscribe failed")
		}
	}
	logger.Info().Str("client_id", client.ID).Strs("symbols", symbols).Msg("Client unsubscribed")
}

// Client is one browser websocket connection.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Hub     *Hub
	Symbols map[string]bool
	Send    chan []byte
}

func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:      id,
		Conn:    conn,
		Hub:     hub,
		Symbols: make(map[string]bool),
		Send:    make(chan []byte, 256),
	}
}

// disconnect hands the client back to the hub. Once the hub has stopped
// nobody drains the unregister channel, so give up instead of blocking.
func (c *Client) disconnect() {
	select {
	case c.Hub.unregister <- c:
	case <-c.Hub.ctx.Done():
	}
}

// ReadPump reads control frames from the client until the connection dies.
func (c *Client) ReadPump() {
	defer func() {
		c.disconnect()
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error().Err(err).Str("client_id", c.ID).Msg("WebSocket read error")
			}
			break
		}

		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message format")
			continue
		}

		switch msg.Type {
		case MsgTypeSubscribe:
			if len(msg.Symbols) > 0 {
				c.Hub.Subscribe(c, msg.Symbols)
			}
		case MsgTypeUnsubscribe:
			if len(msg.Symbols) > 0 {
				c.Hub.Unsubscribe(c, msg.Symbols)
			}
		case MsgTypePing:
			c.sendPong()
		default:
			c.sendError("Unknown message type: " + msg.Type)
		}
	}
}

// WritePump writes queued frames and keepalive pings to the client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(message string) {
	c.enqueue(&ServerMessage{
		Type:      MsgTypeError,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) sendPong() {
	c.enqueue(&ServerMessage{
		Type:      MsgTypePong,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) enqueue(msg *ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
