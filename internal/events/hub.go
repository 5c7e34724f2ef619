// Package events streams committed ladder changes to subscribers over
// server-sent events.
package events

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/chessladder/internal/metrics"
	"github.com/mcoot/chessladder/internal/model"
)

// Payload is the JSON body of a ladder change event
type Payload struct {
	Type      model.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	PlayerID  string          `json:"player_id,omitempty"`
	MatchID   string          `json:"match_id,omitempty"`
	Ratings   []RatingChange  `json:"ratings,omitempty"`
}

// RatingChange is a player's stored rating after the event
type RatingChange struct {
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
}

// NewPayload converts an event to its wire form. Ratings are ordered by player ID.
func NewPayload(e model.Event) Payload {
	p := Payload{
		Type:      e.Type,
		Timestamp: e.Timestamp.UTC(),
		PlayerID:  string(e.PlayerID),
		MatchID:   string(e.MatchID),
	}
	for id, r := range e.Ratings {
		p.Ratings = append(p.Ratings, RatingChange{PlayerID: string(id), Rating: r})
	}
	sort.Slice(p.Ratings, func(i, j int) bool {
		return p.Ratings[i].PlayerID < p.Ratings[j].PlayerID
	})
	return p
}

// Hub fans ladder events out to connected clients
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub. Call Run to start delivering messages.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "events")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("event hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			metrics.EventSubscribers.Inc()
			h.logger.Info("event client registered",
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				metrics.EventSubscribers.Dec()
				h.logger.Info("event client unregistered",
					slog.String("remote_addr", client.remoteAddr),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					dropped++
				}
			}
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("event dropped for slow clients", slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.EventSubscribers.Sub(float64(clientCount))
			h.logger.Info("event hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub. It returns false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes a ladder event and broadcasts it without blocking
func (h *Hub) Publish(e model.Event) {
	data, err := json.Marshal(NewPayload(e))
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("type", string(e.Type)), slog.Any("error", err))
		return
	}
	h.BroadcastEvent(string(e.Type), string(data))
}

// BroadcastEvent sends a named event to all clients
func (h *Hub) BroadcastEvent(eventName, data string) {
	select {
	case h.broadcast <- formatMessage(eventName, data):
	default:
		h.logger.Warn("event broadcast dropped - hub buffer full", slog.String("event", eventName))
	}
}

// Close shuts down the hub and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatMessage formats an SSE message; every data line gets its own prefix
func formatMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
