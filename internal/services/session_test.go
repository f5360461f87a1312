package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/realtime"
	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

type sessionFixture struct {
	svc      SessionService
	hub      *realtime.Hub
	presence *realtime.Presence
	emitter  *captureEmitter
	visitors repos.VisitorRepo
	messages repos.MessageRepo
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db := mustTestDB(t)
	log := mustTestLogger(t)

	visitors := repos.NewVisitorRepo(db, log)
	chats := repos.NewChatRepo(db, log)
	messages := repos.NewMessageRepo(db, log)
	hub := realtime.NewHub(log)
	presence := realtime.NewPresence(log)
	emitter := newCaptureEmitter()

	return &sessionFixture{
		svc:      NewSessionService(db, log, visitors, chats, messages, hub, presence, emitter),
		hub:      hub,
		presence: presence,
		emitter:  emitter,
		visitors: visitors,
		messages: messages,
	}
}

func TestIdentifyCreatesVisitorAndChat(t *testing.T) {
	f := newSessionFixture(t)

	sess, err := f.svc.Identify(context.Background(), "tok-1", "1.2.3.4", "agent")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if sess.Visitor.SessionToken != "tok-1" {
		t.Fatalf("token = %q", sess.Visitor.SessionToken)
	}
	if sess.Chat.Status != types.ChatStatusActive {
		t.Fatalf("chat status = %q", sess.Chat.Status)
	}
	if sess.Chat.VisitorID != sess.Visitor.ID {
		t.Fatalf("chat bound to wrong visitor")
	}
}

func TestIdentifyRejectsBlankToken(t *testing.T) {
	f := newSessionFixture(t)

	if _, err := f.svc.Identify(context.Background(), "   ", "", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestConcurrentIdentifySingleChat(t *testing.T) {
	f := newSessionFixture(t)

	const workers = 10
	results := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := f.svc.Identify(context.Background(), "tok-race", "", "")
			if err != nil {
				t.Errorf("identify %d: %v", i, err)
				return
			}
			results[i] = sess
		}(i)
	}
	wg.Wait()

	first := results[0]
	if first == nil {
		t.Fatalf("no result")
	}
	for i, sess := range results {
		if sess == nil {
			t.Fatalf("worker %d got no session", i)
		}
		if sess.Chat.ID != first.Chat.ID {
			t.Fatalf("worker %d got chat %s, want %s", i, sess.Chat.ID, first.Chat.ID)
		}
	}
}

func TestAttachJoinsRoomAndAnnounces(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	log := mustTestLogger(t)

	sess, err := f.svc.Identify(ctx, "tok-1", "", "")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	client := realtime.NewClient(realtime.RoleVisitor, nil, log)
	f.svc.Attach(ctx, sess, client)

	if client.ChatID() != sess.Chat.ID {
		t.Fatalf("client not bound to chat")
	}
	if n := f.hub.RoomSize(sess.Chat.ID); n != 1 {
		t.Fatalf("room size = %d, want 1", n)
	}

	ev := f.emitter.next(t)
	if ev.event.Type != realtime.EventUserConnected {
		t.Fatalf("announce = %q", ev.event.Type)
	}
}

func TestAttachDisplacesOlderConnection(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	log := mustTestLogger(t)

	sess, err := f.svc.Identify(ctx, "tok-1", "", "")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}

	first := realtime.NewClient(realtime.RoleVisitor, nil, log)
	second := realtime.NewClient(realtime.RoleVisitor, nil, log)
	f.svc.Attach(ctx, sess, first)
	f.svc.Attach(ctx, sess, second)

	current, ok := f.presence.Lookup("tok-1")
	if !ok || current != second {
		t.Fatalf("presence should point at the newest connection")
	}
	if n := f.hub.RoomSize(sess.Chat.ID); n != 1 {
		t.Fatalf("room size = %d, want only the newest client", n)
	}
}

func TestTerminateMarksOfflineOnce(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	log := mustTestLogger(t)

	sess, err := f.svc.Identify(ctx, "tok-1", "", "")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	client := realtime.NewClient(realtime.RoleVisitor, nil, log)
	f.svc.Attach(ctx, sess, client)
	f.emitter.next(t) // userConnected

	f.svc.Terminate(ctx, client)
	ev := f.emitter.next(t)
	if ev.event.Type != realtime.EventUserDisconnected {
		t.Fatalf("teardown broadcast = %q", ev.event.Type)
	}

	visitor, err := f.visitors.GetByToken(ctx, nil, "tok-1")
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if visitor.IsActive {
		t.Fatalf("visitor still active after terminate")
	}

	// A second terminate is a no-op, not a second disconnect broadcast.
	f.svc.Terminate(ctx, client)
	f.emitter.assertQuiet(t)
}

func TestTerminateSupersededConnectionKeepsVisitorOnline(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	log := mustTestLogger(t)

	sess, err := f.svc.Identify(ctx, "tok-1", "", "")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}

	first := realtime.NewClient(realtime.RoleVisitor, nil, log)
	second := realtime.NewClient(realtime.RoleVisitor, nil, log)
	f.svc.Attach(ctx, sess, first)
	f.emitter.next(t)
	f.svc.Attach(ctx, sess, second)
	f.emitter.next(t)

	// The displaced connection finally notices it is dead.
	f.svc.Terminate(ctx, first)

	visitor, err := f.visitors.GetByToken(ctx, nil, "tok-1")
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if !visitor.IsActive {
		t.Fatalf("takeover teardown must not mark the visitor offline")
	}
	f.emitter.assertQuiet(t)
}

func TestHistoryReturnsMessagesInOrder(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Identify(ctx, "tok-1", "", "")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	bodies := []string{"one", "two", "three"}
	for _, b := range bodies {
		if _, err := f.messages.Append(ctx, nil, sess.Chat.ID, types.SenderVisitor, b, sess.Chat.CreatedAt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	_, msgs, err := f.svc.History(ctx, "tok-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != len(bodies) {
		t.Fatalf("messages = %d, want %d", len(msgs), len(bodies))
	}
	for i, m := range msgs {
		if m.Body != bodies[i] {
			t.Fatalf("position %d = %q, want %q", i, m.Body, bodies[i])
		}
	}
}

func TestHistoryUnknownToken(t *testing.T) {
	f := newSessionFixture(t)

	if _, _, err := f.svc.History(context.Background(), "ghost"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
