package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
)

type Role string

const (
	RoleVisitor  Role = "visitor"
	RoleOperator Role = "operator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one long-lived websocket connection. The owning handler goroutine
// runs ReadLoop; WritePump runs in its own goroutine and is the only writer
// on the underlying connection.
type Client struct {
	ID   uuid.UUID
	Role Role

	Send chan Event

	conn *websocket.Conn
	log  *logger.Logger
	done chan struct{}
	once sync.Once

	mu           sync.RWMutex
	sessionToken string
	chatID       uuid.UUID
}

func NewClient(role Role, conn *websocket.Conn, log *logger.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:   id,
		Role: role,
		Send: make(chan Event, 32),
		conn: conn,
		log:  log.With("component", "Client", "client_id", id, "role", role),
		done: make(chan struct{}),
	}
}

func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	c.sessionToken = token
	c.mu.Unlock()
}

func (c *Client) ChatID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatID
}

func (c *Client) SetChatID(id uuid.UUID) {
	c.mu.Lock()
	c.chatID = id
	c.mu.Unlock()
}

// ReadLoop blocks until the connection drops, dispatching each inbound frame
// to handle. Malformed frames terminate the connection.
func (c *Client) ReadLoop(handle func(Event)) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Websocket read error", "error", err)
			}
			return
		}
		handle(ev)
	}
}

// WritePump drains Send onto the connection and keeps the peer alive with
// pings. It exits when Send is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Warn("Websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close is idempotent; it stops the write pump and closes the connection.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
