// Package events runs the realtime presence channel: connected users get a
// welcome, everybody else hears about the newcomer, and every message sent
// by a client is acknowledged.
package events

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/metrics"
)

// Event names carried in Message.Event.
const (
	EventWelcome = "welcome"
	EventMessage = "message"
)

const (
	announcement = "random message"
	acknowledged = "acknowledged"
)

// Message is the JSON envelope exchanged with clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type outbound struct {
	msg    Message
	except *Client
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     cinehub.Logger
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(logger cinehub.Logger) *Hub {
	if logger == nil {
		logger = cinehub.NewDefaultLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("Events hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAll()
			h.logger.Info("Events hub stopped", "clients_closed", n)
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.TrackEventsConnection(true)
			h.logger.Info("User connected", "pseudo", c.pseudo, "client_id", c.id, "total_clients", total)

		case c := <-h.unregister:
			h.remove(c)

		case out := <-h.broadcast:
			h.fanOut(out)
		}
	}
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg Message) {
	h.broadcastExcept(msg, nil)
}

func (h *Hub) broadcastExcept(msg Message, except *Client) {
	select {
	case h.broadcast <- outbound{msg: msg, except: except}:
	default:
		h.logger.Warn("Events broadcast queue full, dropping message", "event", msg.Event)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Announce broadcasts an announcement after random delays in [0, maxInterval)
// until ctx is done. A non-positive maxInterval disables it.
func (h *Hub) Announce(ctx context.Context, maxInterval time.Duration) {
	if maxInterval <= 0 {
		return
	}
	for {
		timer := time.NewTimer(time.Duration(rand.Int63n(int64(maxInterval))))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			h.Broadcast(Message{Event: EventMessage, Data: announcement})
		}
	}
}

func (h *Hub) fanOut(out outbound) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != out.except {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].connectedAt.Before(clients[j].connectedAt)
	})

	for _, c := range clients {
		if !c.enqueue(out.msg) {
			h.logger.Warn("Events client too slow, disconnecting", "client_id", c.id)
			h.remove(c)
		}
	}
}

// join registers c. It returns false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.closeSend()
	}
	h.mu.Unlock()

	if ok {
		metrics.TrackEventsConnection(false)
		h.logger.Info("User disconnected", "pseudo", c.pseudo, "client_id", c.id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.closeSend()
		metrics.TrackEventsConnection(false)
	}
}
