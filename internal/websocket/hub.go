// Package websocket pushes session-slot changes to a user's connected devices.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/google/uuid"
)

const broadcastBuffer = 256

type notification struct {
	userID uuid.UUID
	data   []byte
}

type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan notification
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	running    bool
	stopped    bool
	now        func() time.Time
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan notification, broadcastBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, set := range h.clients {
				for client := range set {
					client.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]struct{})
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.stopped {
				client.Close()
			} else {
				set, ok := h.clients[client.userID]
				if !ok {
					set = make(map[*Client]struct{})
					h.clients[client.userID] = set
				}
				set[client] = struct{}{}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case n := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[n.userID] {
				select {
				case client.send <- n.data:
				default:
					// Slow reader; drop it rather than stall every other user.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	client.Close()
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// Stop closes every client and, when Run is active, blocks until it has
// returned. It is safe to call more than once and before Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
		client.Close()
	}
}

// NotifySession queues a session event for every connection of userID.
// It never blocks the caller; events are dropped when the queue is full.
func (h *Hub) NotifySession(userID uuid.UUID, event domain.SessionEvent) {
	select {
	case <-h.stop:
		return
	default:
	}

	data, err := json.Marshal(domain.SessionMessage{Type: event, UserID: userID, At: h.now().UTC()})
	if err != nil {
		slog.Error("failed to encode session event", "op", "websocket.NotifySession", "error", err)
		return
	}

	select {
	case h.broadcast <- notification{userID: userID, data: data}:
	default:
		slog.Warn("session event dropped", "op", "websocket.NotifySession", "user_id", userID, "event", event)
	}
}

// Connections reports the open session sockets across all users.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) clientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
