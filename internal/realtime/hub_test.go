package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Send:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.Send:
		t.Fatalf("unexpected event %q", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitToRoomDeliversToMembers(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	chatID := uuid.New()

	visitor := NewClient(RoleVisitor, nil, log)
	operator := NewClient(RoleOperator, nil, log)
	outsider := NewClient(RoleVisitor, nil, log)

	hub.Join(chatID, visitor)
	hub.Join(chatID, operator)
	hub.Join(uuid.New(), outsider)

	hub.EmitToRoom(chatID, Event{Type: EventNewMessage})

	if ev := recvEvent(t, visitor); ev.Type != EventNewMessage {
		t.Fatalf("visitor got %q, want %q", ev.Type, EventNewMessage)
	}
	if ev := recvEvent(t, operator); ev.Type != EventNewMessage {
		t.Fatalf("operator got %q, want %q", ev.Type, EventNewMessage)
	}
	assertNoEvent(t, outsider)
}

func TestEmitToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	hub.EmitToRoom(uuid.New(), Event{Type: EventNewMessage})
}

func TestEmitToOperators(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)

	op1 := NewClient(RoleOperator, nil, log)
	op2 := NewClient(RoleOperator, nil, log)
	visitor := NewClient(RoleVisitor, nil, log)
	hub.AddOperator(op1)
	hub.AddOperator(op2)
	hub.Join(uuid.New(), visitor)

	hub.EmitToOperators(Event{Type: EventAdminNewMessage})

	if ev := recvEvent(t, op1); ev.Type != EventAdminNewMessage {
		t.Fatalf("op1 got %q", ev.Type)
	}
	if ev := recvEvent(t, op2); ev.Type != EventAdminNewMessage {
		t.Fatalf("op2 got %q", ev.Type)
	}
	assertNoEvent(t, visitor)
}

func TestRelayTypingExcludesOrigin(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	chatID := uuid.New()

	origin := NewClient(RoleVisitor, nil, log)
	peer := NewClient(RoleOperator, nil, log)
	hub.Join(chatID, origin)
	hub.Join(chatID, peer)

	hub.RelayTyping(chatID, origin, Event{Type: EventTypingStatus})

	if ev := recvEvent(t, peer); ev.Type != EventTypingStatus {
		t.Fatalf("peer got %q", ev.Type)
	}
	assertNoEvent(t, origin)
}

func TestLeaveStopsDelivery(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	chatID := uuid.New()

	c := NewClient(RoleVisitor, nil, log)
	hub.Join(chatID, c)
	hub.Leave(chatID, c)

	hub.EmitToRoom(chatID, Event{Type: EventNewMessage})
	assertNoEvent(t, c)

	if n := hub.RoomSize(chatID); n != 0 {
		t.Fatalf("room size = %d, want 0", n)
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	log := mustTestLogger(t)
	hub := NewHub(log)
	chatID := uuid.New()

	c := NewClient(RoleVisitor, nil, log)
	hub.Join(chatID, c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(c.Send)+10; i++ {
			hub.EmitToRoom(chatID, Event{Type: EventNewMessage})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("emit blocked on a full send buffer")
	}
}
