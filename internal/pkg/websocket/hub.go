package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yigit/musicschool/internal/pkg/events"
)

// Hub maintains the set of active clients and routes entitlement change
// events to them. Students receive events about themselves; admins receive
// every event.
type Hub struct {
	// Registered student clients by student ID
	students map[string]map[*Client]bool

	// Registered admin clients
	admins map[*Client]bool

	// Events to fan out
	broadcast chan events.Event

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for concurrent access to the client maps
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		students:   make(map[string]map[*Client]bool),
		admins:     make(map[*Client]bool),
		broadcast:  make(chan events.Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket-hub").Logger(),
	}
}

// Run handles registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Broadcast queues an event for delivery. It never blocks; when the queue is
// full the event is dropped and clients catch up on their next read.
func (h *Hub) Broadcast(event events.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("studentId", event.StudentID).Msg("Broadcast queue full, dropping event")
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients for a student
func (h *Hub) ClientCount(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.students[studentID])
}

// AdminCount returns the number of connected admin clients
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.admin {
		h.admins[client] = true
	} else {
		if _, ok := h.students[client.studentID]; !ok {
			h.students[client.studentID] = make(map[*Client]bool)
		}
		h.students[client.studentID][client] = true
	}

	h.logger.Info().
		Str("studentId", client.studentID).
		Bool("admin", client.admin).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	if client.admin {
		if _, ok := h.admins[client]; !ok {
			return
		}
		delete(h.admins, client)
	} else {
		clients, ok := h.students[client.studentID]
		if !ok {
			return
		}
		if _, ok := clients[client]; !ok {
			return
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.students, client.studentID)
		}
	}
	close(client.send)

	h.logger.Info().
		Str("studentId", client.studentID).
		Bool("admin", client.admin).
		Msg("Client unregistered")
}

func (h *Hub) broadcastEvent(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("studentId", event.StudentID).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	deliver := func(client *Client) {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}

	for client := range h.students[event.StudentID] {
		deliver(client)
	}
	for client := range h.admins {
		deliver(client)
	}

	// a full buffer means the peer stopped reading
	for _, client := range slow {
		h.removeLocked(client)
	}

	h.logger.Debug().
		Str("studentId", event.StudentID).
		Int("students", len(h.students[event.StudentID])).
		Int("admins", len(h.admins)).
		Msg("Event broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.students {
		for client := range clients {
			h.removeLocked(client)
		}
	}
	for client := range h.admins {
		h.removeLocked(client)
	}
}
