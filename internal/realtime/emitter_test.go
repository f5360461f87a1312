package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type memoryPublisher struct {
	published []BusMessage
}

func (p *memoryPublisher) Publish(ctx context.Context, msg BusMessage) error {
	p.published = append(p.published, msg)
	return nil
}

func TestBusEmitterRoundTripsIntoHub(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	chatID := uuid.New()

	member := NewClient(RoleVisitor, nil, log)
	operator := NewClient(RoleOperator, nil, log)
	hub.Join(chatID, member)
	hub.AddOperator(operator)

	pub := &memoryPublisher{}
	emitter := &BusEmitter{Bus: pub}

	emitter.EmitToRoom(chatID, Event{Type: EventNewMessage, Payload: map[string]any{"message": "hi"}})
	emitter.EmitToOperators(Event{Type: EventAdminNewMessage})

	if len(pub.published) != 2 {
		t.Fatalf("published = %d messages, want 2", len(pub.published))
	}

	// Survive the wire encoding the redis bus applies.
	for _, msg := range pub.published {
		raw, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded BusMessage
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		Forward(hub, decoded)
	}

	if ev := recvEvent(t, member); ev.Type != EventNewMessage {
		t.Fatalf("member got %q", ev.Type)
	}
	if ev := recvEvent(t, operator); ev.Type != EventAdminNewMessage {
		t.Fatalf("operator got %q", ev.Type)
	}
	assertNoEvent(t, member)
}

func TestForwardIgnoresUnknownScope(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	c := NewClient(RoleVisitor, nil, log)
	chatID := uuid.New()
	hub.Join(chatID, c)

	Forward(hub, BusMessage{Scope: "mystery", ChatID: chatID, Event: Event{Type: EventNewMessage}})
	assertNoEvent(t, c)
}
