package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when sending to a closed client
	ErrClientClosed = errors.New("client is closed")
	// ErrSlowClient is returned when a client's send buffer is full
	ErrSlowClient = errors.New("client send buffer full")
)

// ClientInterface is what the hub needs from a connection
type ClientInterface interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// subscriber is implemented by clients that filter events by entity
type subscriber interface {
	Wants(entity EntityType) bool
}

// EventPublisher is implemented by anything services can announce changes to
type EventPublisher interface {
	Publish(event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Hub fans ledger events out to connected clients.
// It is safe for concurrent use.
type Hub struct {
	clients map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]ClientInterface)}
}

// Register adds a client to the hub
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	n := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("client_id", client.ID()).Int("client_count", n).Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	_, exists := h.clients[client.ID()]
	delete(h.clients, client.ID())
	h.mu.Unlock()

	if exists {
		log.Debug().Str("client_id", client.ID()).Msg("WebSocket client unregistered")
	}
}

// Publish implements EventPublisher
func (h *Hub) Publish(event Event) {
	h.Broadcast(event)
}

// Broadcast sends event to every client subscribed to its entity. Clients
// that cannot keep up are disconnected.
func (h *Hub) Broadcast(event Event) {
	recipients := h.recipients(event.Entity)
	if len(recipients) == 0 {
		return
	}

	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize event")
		return
	}

	for _, c := range recipients {
		if err := c.Send(data); err != nil {
			log.Warn().Err(err).Str("client_id", c.ID()).Msg("Dropping WebSocket client")
			h.Unregister(c)
			c.Close()
		}
	}

	log.Debug().Str("event_type", event.Type).Int("client_count", len(recipients)).Msg("Broadcast event")
}

func (h *Hub) recipients(entity EntityType) []ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClientInterface, 0, len(h.clients))
	for _, c := range h.clients {
		if s, ok := c.(subscriber); ok && !s.Wants(entity) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]ClientInterface)
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Str("client_id", c.ID()).Msg("Error closing client")
		}
	}
}
