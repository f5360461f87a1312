package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
)

// Hub routes events to conversation rooms (one visitor plus any operators who
// joined that chat) and to the operator broadcast group. Membership is
// whatever set of clients is joined at emit time; there is no buffering for
// late joiners.
type Hub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	rooms     map[uuid.UUID]map[*Client]bool
	operators map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:       log.With("component", "Hub"),
		rooms:     make(map[uuid.UUID]map[*Client]bool),
		operators: make(map[*Client]bool),
	}
}

func (h *Hub) Join(chatID uuid.UUID, c *Client) {
	if chatID == uuid.Nil || c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[chatID]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[chatID] = clients
	}
	clients[c] = true
	h.log.Debug("Client joined room", "client_id", c.ID, "chat_id", chatID)
}

func (h *Hub) Leave(chatID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(chatID, c)
}

func (h *Hub) leaveLocked(chatID uuid.UUID, c *Client) {
	clients, ok := h.rooms[chatID]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, chatID)
	}
}

// LeaveAll removes the client from every room it joined.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID, clients := range h.rooms {
		if clients[c] {
			h.leaveLocked(chatID, c)
		}
	}
}

func (h *Hub) AddOperator(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.operators[c] = true
	h.mu.Unlock()
	h.log.Debug("Operator connected", "client_id", c.ID)
}

func (h *Hub) RemoveOperator(c *Client) {
	h.mu.Lock()
	delete(h.operators, c)
	h.mu.Unlock()
}

// EmitToRoom delivers to every client currently joined to the chat's room.
// An empty room is a no-op. Clients with a full outbound buffer are skipped.
func (h *Hub) EmitToRoom(chatID uuid.UUID, ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatID]))
	for c := range h.rooms[chatID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, ev)
	}
}

// EmitToOperators delivers to every connection with the operator role.
func (h *Hub) EmitToOperators(ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.operators))
	for c := range h.operators {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, ev)
	}
}

// RelayTyping delivers a typing event to the room, excluding the origin
// connection: the sender never receives its own typing echo.
func (h *Hub) RelayTyping(chatID uuid.UUID, origin *Client, ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatID]))
	for c := range h.rooms[chatID] {
		if c == origin {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, ev)
	}
}

func (h *Hub) send(c *Client, ev Event) {
	select {
	case c.Send <- ev:
	default:
		h.log.Warn("Dropping event; client outbound buffer full", "client_id", c.ID, "event", ev.Type)
	}
}

// RoomSize reports how many clients are joined to a chat's room.
func (h *Hub) RoomSize(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}
