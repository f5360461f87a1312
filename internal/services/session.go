package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/realtime"
	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

// Session binds a visitor identity to its single active chat.
type Session struct {
	Visitor *types.Visitor
	Chat    *types.Chat
}

// SessionService owns the visitor lifecycle: identification on first contact,
// connection registration with takeover semantics, and teardown.
type SessionService interface {
	// Identify upserts the visitor behind sessionToken and returns its active
	// chat, creating one if none exists. Concurrent calls with the same token
	// collapse onto one result.
	Identify(ctx context.Context, sessionToken, ipAddress, userAgent string) (*Session, error)
	// Attach registers a connected client for the session and joins it to the
	// chat room. If the token already had a live client, the old one is
	// displaced and closed.
	Attach(ctx context.Context, sess *Session, c *realtime.Client)
	// Terminate tears down a client's session. Safe to call more than once
	// and from both the read loop and connection close paths.
	Terminate(ctx context.Context, c *realtime.Client)
	History(ctx context.Context, sessionToken string) (*Session, []*types.Message, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	visitors repos.VisitorRepo
	chats    repos.ChatRepo
	messages repos.MessageRepo
	hub      *realtime.Hub
	presence *realtime.Presence
	emitter  realtime.Emitter

	identifyGroup singleflight.Group
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	visitors repos.VisitorRepo,
	chats repos.ChatRepo,
	messages repos.MessageRepo,
	hub *realtime.Hub,
	presence *realtime.Presence,
	emitter realtime.Emitter,
) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		visitors: visitors,
		chats:    chats,
		messages: messages,
		hub:      hub,
		presence: presence,
		emitter:  emitter,
	}
}

func (s *sessionService) Identify(ctx context.Context, sessionToken, ipAddress, userAgent string) (*Session, error) {
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return nil, fmt.Errorf("%w: session token required", apperrors.ErrValidation)
	}

	v, err, _ := s.identifyGroup.Do(token, func() (any, error) {
		var sess Session
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			visitor, err := s.visitors.UpsertByToken(ctx, tx, token, ipAddress, userAgent)
			if err != nil {
				return fmt.Errorf("upsert visitor: %w", err)
			}
			chat, err := s.chats.FindOrCreateActive(ctx, tx, visitor.ID)
			if err != nil {
				return fmt.Errorf("find or create chat: %w", err)
			}
			sess.Visitor = visitor
			sess.Chat = chat
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &sess, nil
	})
	if err != nil {
		s.log.Error("identify failed", "error", err)
		return nil, err
	}
	return v.(*Session), nil
}

func (s *sessionService) Attach(ctx context.Context, sess *Session, c *realtime.Client) {
	token := sess.Visitor.SessionToken
	c.SetSessionToken(token)
	c.SetChatID(sess.Chat.ID)

	if displaced := s.presence.Register(token, c); displaced != nil {
		s.log.Info("session taken over by newer connection", "session_token", token)
		s.hub.LeaveAll(displaced)
		displaced.Close()
	}
	s.hub.Join(sess.Chat.ID, c)

	s.emitter.EmitToOperators(realtime.Event{
		Type: realtime.EventUserConnected,
		Payload: map[string]any{
			"visitorId":    sess.Visitor.ID,
			"sessionToken": token,
			"chatId":       sess.Chat.ID,
		},
	})
}

func (s *sessionService) Terminate(ctx context.Context, c *realtime.Client) {
	token := c.SessionToken()
	if token == "" {
		c.Close()
		return
	}

	current, ok := s.presence.Lookup(token)
	if !ok || current != c {
		// Either already torn down or superseded by a takeover. The departed
		// client still needs local cleanup, but the visitor is not offline.
		s.hub.LeaveAll(c)
		c.Close()
		return
	}

	s.presence.Unregister(token, c)
	s.hub.LeaveAll(c)
	c.Close()

	if visitor, err := s.visitors.GetByToken(ctx, nil, token); err == nil {
		if err := s.visitors.MarkOffline(ctx, nil, visitor.ID, time.Now().UTC()); err != nil {
			s.log.Error("failed to mark visitor offline", "visitor_id", visitor.ID, "error", err)
		}
		s.emitter.EmitToOperators(realtime.Event{
			Type: realtime.EventUserDisconnected,
			Payload: map[string]any{
				"visitorId":    visitor.ID,
				"sessionToken": token,
			},
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Error("failed to load visitor on disconnect", "error", err)
	}
}

func (s *sessionService) History(ctx context.Context, sessionToken string) (*Session, []*types.Message, error) {
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return nil, nil, fmt.Errorf("%w: session token required", apperrors.ErrValidation)
	}

	visitor, err := s.visitors.GetByToken(ctx, nil, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, err
	}
	chat, err := s.chats.GetActiveByVisitor(ctx, nil, visitor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrChatNotFound
		}
		return nil, nil, err
	}
	messages, err := s.messages.ListByChat(ctx, nil, chat.ID, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return &Session{Visitor: visitor, Chat: chat}, messages, nil
}
