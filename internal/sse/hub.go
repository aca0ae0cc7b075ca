package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
)

// EventType defines the realtime event name.
type EventType string

const (
	EventMessageCreated    EventType = "message.created"
	EventChatCreated       EventType = "chat.created"
	EventChatMemberAdded   EventType = "chat.member_added"
	EventPaymentSuccessful EventType = "payment.successful"
)

// Event is the envelope pushed to realtime clients of one business.
type Event struct {
	Event     EventType   `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a connected realtime client (SSE or WebSocket).
type Client struct {
	ID         string
	BusinessID int
	Events     chan []byte
}

// Hub manages realtime client connections and per-business broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[int]map[string]*Client
	buffer  int
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[int]map[string]*Client),
		buffer:  64,
	}
}

// Register adds a client to the business topic and returns it for streaming.
func (h *Hub) Register(businessID int, clientID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:         clientID,
		BusinessID: businessID,
		Events:     make(chan []byte, h.buffer),
	}
	topic, ok := h.clients[businessID]
	if !ok {
		topic = make(map[string]*Client)
		h.clients[businessID] = topic
	}
	topic[clientID] = c
	log.Info().Str("client_id", clientID).Int("business_id", businessID).Int("topic_clients", len(topic)).Msg("realtime client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic, ok := h.clients[c.BusinessID]
	if !ok {
		return
	}
	if _, ok := topic[c.ID]; !ok {
		return
	}
	close(c.Events)
	delete(topic, c.ID)
	if len(topic) == 0 {
		delete(h.clients, c.BusinessID)
	}
	log.Info().Str("client_id", c.ID).Int("business_id", c.BusinessID).Msg("realtime client disconnected")
}

// Publish sends an event to every client of the business.
// Non-blocking: drops the event for clients whose buffer is full.
func (h *Hub) Publish(businessID int, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal realtime event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[businessID] {
		select {
		case c.Events <- data:
		default:
			metrics.EventDropped()
			log.Warn().Str("client_id", c.ID).Str("event", string(event.Event)).Msg("realtime client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of clients connected to the business.
func (h *Hub) ClientCount(businessID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[businessID])
}
