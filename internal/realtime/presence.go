package realtime

import (
	"sync"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
)

type presenceEntry struct {
	client *Client
	typing bool
}

// Presence maps session tokens to live visitor connections plus an ephemeral
// typing flag. Process-memory only; rebuilt from zero on restart.
type Presence struct {
	mu      sync.RWMutex
	log     *logger.Logger
	entries map[string]*presenceEntry
}

func NewPresence(log *logger.Logger) *Presence {
	return &Presence{
		log:     log.With("component", "Presence"),
		entries: make(map[string]*presenceEntry),
	}
}

// Register binds a token to a connection, last writer wins. The displaced
// connection (a stale handle superseded by a reconnect) is returned so the
// caller can detach it.
func (p *Presence) Register(token string, c *Client) *Client {
	if token == "" || c == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var displaced *Client
	if prev, ok := p.entries[token]; ok && prev.client != c {
		displaced = prev.client
	}
	p.entries[token] = &presenceEntry{client: c}
	return displaced
}

// Unregister removes the token only if it still maps to the given connection,
// so a reconnect's entry survives the stale connection's teardown.
func (p *Presence) Unregister(token string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[token]
	if !ok {
		return
	}
	if c != nil && entry.client != c {
		return
	}
	delete(p.entries, token)
}

func (p *Presence) SetTyping(token string, typing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[token]; ok {
		entry.typing = typing
	}
}

func (p *Presence) Lookup(token string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[token]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

func (p *Presence) IsTyping(token string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[token]
	return ok && entry.typing
}

// Online reports how many visitor connections are currently registered.
func (p *Presence) Online() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
