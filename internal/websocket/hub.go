// Package websocket delivers operation snapshots to connected UI
// clients. The hub's run loop is the single writer over the client set;
// registration, unregistration and broadcast all flow through it.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Envelope is the wire format for every outbound message
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Hub maintains the set of active clients and broadcasts snapshots to
// them. It implements async.Hub.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *slog.Logger

	mu      sync.Mutex
	quit    chan struct{}
	running bool
}

// NewHub creates a hub; Start must be called before use
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub's run loop
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop shuts the run loop down and closes all client send channels
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client_registered",
				slog.String("client_id", client.id),
				slog.Int("client_count", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client_unregistered",
					slog.String("client_id", client.id),
					slog.Int("client_count", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("client_dropped_slow_consumer",
						slog.String("client_id", client.id))
				}
			}
		}
	}
}

// BroadcastUpdate marshals payload into an envelope and queues it for
// every connected client. Implements async.Hub.
func (h *Hub) BroadcastUpdate(event string, payload any) {
	data, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("broadcast_marshal_failed",
			slog.String("event", event),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}
