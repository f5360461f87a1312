package realtime

import (
	"context"

	"github.com/google/uuid"
)

// Emitter is what the services layer broadcasts through. In-process it is the
// Hub itself; a worker process publishes to the redis bus instead and the API
// process forwards bus traffic back into its Hub.
type Emitter interface {
	EmitToRoom(chatID uuid.UUID, ev Event)
	EmitToOperators(ev Event)
}

const (
	ScopeRoom      = "room"
	ScopeOperators = "operators"
)

// BusMessage is the wire form of an emitted event on the cross-process bus.
type BusMessage struct {
	Scope  string    `json:"scope"`
	ChatID uuid.UUID `json:"chat_id,omitempty"`
	Event  Event     `json:"event"`
}

// Publisher is implemented by the redis bus.
type Publisher interface {
	Publish(ctx context.Context, msg BusMessage) error
}

type BusEmitter struct {
	Bus Publisher
}

func (e *BusEmitter) EmitToRoom(chatID uuid.UUID, ev Event) {
	_ = e.Bus.Publish(context.Background(), BusMessage{Scope: ScopeRoom, ChatID: chatID, Event: ev})
}

func (e *BusEmitter) EmitToOperators(ev Event) {
	_ = e.Bus.Publish(context.Background(), BusMessage{Scope: ScopeOperators, Event: ev})
}

// Forward applies a bus message to a local hub.
func Forward(h *Hub, msg BusMessage) {
	switch msg.Scope {
	case ScopeRoom:
		h.EmitToRoom(msg.ChatID, msg.Event)
	case ScopeOperators:
		h.EmitToOperators(msg.Event)
	}
}
