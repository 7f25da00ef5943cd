package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/davesep77/evolentra/internal/pubsub"
)

const sendBuffer = 64

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	UserID uint64
	send   chan []byte
}

// Hub routes ledger events to the sockets of the user they concern.
type Hub struct {
	clients map[uint64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	deliver    chan pubsub.LedgerEvent
	done       chan struct{}

	mu  sync.RWMutex
	log logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[uint64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan pubsub.LedgerEvent, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client registry until ctx is cancelled. It must be called
// at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[uint64]map[*Client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.UserID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.UserID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
				}
				if len(set) == 0 {
					delete(h.clients, c.UserID)
				}
			}
			h.mu.Unlock()

		case event := <-h.deliver:
			msg, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).Warn("failed to encode ledger event")
				continue
			}
			h.mu.RLock()
			for c := range h.clients[event.UserID] {
				select {
				case c.send <- msg:
				default:
					h.log.WithField("user_id", c.UserID).Warn("client buffer full, skipping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Deliver queues an event for the owning user's sockets. It never blocks
// the caller; events are dropped when the hub is saturated.
func (h *Hub) Deliver(event pubsub.LedgerEvent) {
	select {
	case h.deliver <- event:
	default:
		h.log.WithField("type", event.Type).Warn("hub saturated, dropping ledger event")
	}
}

// Register adds a socket for userID. Once the hub has stopped the client
// comes back with its send channel already closed.
func (h *Hub) Register(userID uint64) *Client {
	c := &Client{UserID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

// Unregister removes c. It is a no-op after the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of open sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
