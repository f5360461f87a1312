package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/realtime"
	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

const maxMessageLength = 4000

// RelayService is the message pipeline: validate, persist, then fan out.
// Nothing is broadcast that was not first written, so every delivered frame
// is backed by a row.
type RelayService interface {
	Submit(ctx context.Context, chatID uuid.UUID, sender, body string) (*types.Message, error)
}

type relayService struct {
	log       *logger.Logger
	chats     repos.ChatRepo
	visitors  repos.VisitorRepo
	messages  repos.MessageRepo
	emitter   realtime.Emitter
	assistant AssistantService
	settings  *AISettings

	mu        sync.Mutex
	chatLocks map[uuid.UUID]*sync.Mutex
}

func NewRelayService(
	baseLog *logger.Logger,
	chats repos.ChatRepo,
	visitors repos.VisitorRepo,
	messages repos.MessageRepo,
	emitter realtime.Emitter,
	assistant AssistantService,
	settings *AISettings,
) RelayService {
	return &relayService{
		log:       baseLog.With("service", "RelayService"),
		chats:     chats,
		visitors:  visitors,
		messages:  messages,
		emitter:   emitter,
		assistant: assistant,
		settings:  settings,
		chatLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor serializes submissions per chat so persistence order matches
// delivery order within a conversation.
func (s *relayService) lockFor(chatID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.chatLocks[chatID] = l
	}
	return l
}

func validSender(sender string) bool {
	switch sender {
	case types.SenderVisitor, types.SenderOperator, types.SenderAssistant:
		return true
	}
	return false
}

func (s *relayService) Submit(ctx context.Context, chatID uuid.UUID, sender, body string) (*types.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body required", apperrors.ErrValidation)
	}
	if len(body) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrValidation, maxMessageLength)
	}
	if !validSender(sender) {
		return nil, fmt.Errorf("%w: unknown sender %q", apperrors.ErrValidation, sender)
	}

	lock := s.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	chat, err := s.chats.GetByID(ctx, nil, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		return nil, err
	}

	msg, err := s.messages.Append(ctx, nil, chat.ID, sender, body, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to persist message", "chat_id", chat.ID, "error", err)
		return nil, err
	}

	payload := map[string]any{
		"id":        msg.ID,
		"chatId":    msg.ChatID,
		"sender":    msg.Sender,
		"message":   msg.Body,
		"timestamp": msg.Timestamp,
	}
	s.emitter.EmitToRoom(chat.ID, realtime.Event{Type: realtime.EventNewMessage, Payload: payload})

	if sender == types.SenderVisitor {
		adminPayload := map[string]any{
			"id":        msg.ID,
			"chatId":    msg.ChatID,
			"sender":    msg.Sender,
			"message":   msg.Body,
			"timestamp": msg.Timestamp,
			"visitorId": chat.VisitorID,
		}
		if visitor, verr := s.visitors.GetByID(ctx, nil, chat.VisitorID); verr == nil {
			adminPayload["sessionToken"] = visitor.SessionToken
		}
		s.emitter.EmitToOperators(realtime.Event{Type: realtime.EventAdminNewMessage, Payload: adminPayload})

		if s.settings.Enabled() {
			// Detached from the caller: the visitor disconnecting must not
			// cancel a reply that is already being generated.
			go s.respond(chat.ID, body)
		}
	}

	return msg, nil
}

func (s *relayService) respond(chatID uuid.UUID, visitorMessage string) {
	ctx := context.Background()
	reply := s.assistant.Respond(ctx, chatID, visitorMessage)
	if _, err := s.Submit(ctx, chatID, types.SenderAssistant, reply); err != nil {
		s.log.Error("failed to deliver assistant reply", "chat_id", chatID, "error", err)
	}
}
