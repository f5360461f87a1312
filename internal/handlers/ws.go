package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/realtime"
	"github.com/meetdshah26/backend-chatbot/internal/services"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin widgets are the normal case; auth happens at the
	// protocol level, not the origin level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades visitor and operator connections and dispatches their
// inbound frames into the session and relay services.
type WSHandler struct {
	log            *logger.Logger
	hub            *realtime.Hub
	presence       *realtime.Presence
	sessionService services.SessionService
	relayService   services.RelayService
}

func NewWSHandler(
	baseLog *logger.Logger,
	hub *realtime.Hub,
	presence *realtime.Presence,
	sessionService services.SessionService,
	relayService services.RelayService,
) *WSHandler {
	return &WSHandler{
		log:            baseLog.With("handler", "WSHandler"),
		hub:            hub,
		presence:       presence,
		sessionService: sessionService,
		relayService:   relayService,
	}
}

// deliver drops the frame instead of blocking when the client's send buffer
// is full; a stalled peer must not stall the read loop.
func deliver(client *realtime.Client, ev realtime.Event) {
	select {
	case client.Send <- ev:
	default:
	}
}

func payloadMap(ev realtime.Event) map[string]any {
	if m, ok := ev.Payload.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func payloadString(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadBool(p map[string]any, key string) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return false
}

func payloadChatID(p map[string]any) (uuid.UUID, bool) {
	id, err := uuid.Parse(payloadString(p, "chatId"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (wh *WSHandler) Visitor(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(realtime.RoleVisitor, conn, wh.log)
	go client.WritePump()

	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()

	client.ReadLoop(func(ev realtime.Event) {
		wh.handleVisitorEvent(c, client, ev, ip, userAgent)
	})

	// The request context dies with the connection; teardown still has to
	// write the offline marker.
	wh.sessionService.Terminate(context.Background(), client)
}

func (wh *WSHandler) handleVisitorEvent(c *gin.Context, client *realtime.Client, ev realtime.Event, ip, userAgent string) {
	p := payloadMap(ev)

	switch ev.Type {
	case realtime.EventInit:
		token := payloadString(p, "sessionToken")
		sess, err := wh.sessionService.Identify(c.Request.Context(), token, ip, userAgent)
		if err != nil {
			deliver(client, realtime.ErrorEvent("failed to initialize session"))
			return
		}
		wh.sessionService.Attach(c.Request.Context(), sess, client)

		_, messages, err := wh.sessionService.History(c.Request.Context(), token)
		if err != nil {
			deliver(client, realtime.ErrorEvent("failed to load history"))
			return
		}
		deliver(client, realtime.Event{
			Type: realtime.EventChatHistory,
			Payload: map[string]any{
				"chatId":   sess.Chat.ID,
				"messages": messageViews(messages),
			},
		})

	case realtime.EventSendMessage:
		chatID := client.ChatID()
		if chatID == uuid.Nil {
			deliver(client, realtime.ErrorEvent("session not initialized"))
			return
		}
		if _, err := wh.relayService.Submit(c.Request.Context(), chatID, types.SenderVisitor, payloadString(p, "message")); err != nil {
			deliver(client, realtime.ErrorEvent("failed to send message"))
		}

	case realtime.EventTyping:
		chatID := client.ChatID()
		token := client.SessionToken()
		if chatID == uuid.Nil || token == "" {
			return
		}
		isTyping := payloadBool(p, "isTyping")
		wh.presence.SetTyping(token, isTyping)
		wh.hub.RelayTyping(chatID, client, realtime.Event{
			Type:    realtime.EventTypingStatus,
			Payload: map[string]any{"chatId": chatID, "isTyping": isTyping, "sender": string(realtime.RoleVisitor)},
		})
		wh.hub.EmitToOperators(realtime.Event{
			Type:    realtime.EventAdminTypingStatus,
			Payload: map[string]any{"chatId": chatID, "sessionToken": token, "isTyping": isTyping},
		})

	default:
		deliver(client, realtime.ErrorEvent("unknown event type"))
	}
}

func (wh *WSHandler) Operator(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(realtime.RoleOperator, conn, wh.log)
	go client.WritePump()
	wh.hub.AddOperator(client)

	client.ReadLoop(func(ev realtime.Event) {
		wh.handleOperatorEvent(c, client, ev)
	})

	wh.hub.RemoveOperator(client)
	wh.hub.LeaveAll(client)
	client.Close()
}

func (wh *WSHandler) handleOperatorEvent(c *gin.Context, client *realtime.Client, ev realtime.Event) {
	p := payloadMap(ev)

	switch ev.Type {
	case realtime.EventJoin:
		chatID, ok := payloadChatID(p)
		if !ok {
			deliver(client, realtime.ErrorEvent("invalid chat id"))
			return
		}
		wh.hub.Join(chatID, client)

	case realtime.EventLeave:
		chatID, ok := payloadChatID(p)
		if !ok {
			return
		}
		wh.hub.Leave(chatID, client)

	case realtime.EventSendMessage:
		chatID, ok := payloadChatID(p)
		if !ok {
			deliver(client, realtime.ErrorEvent("invalid chat id"))
			return
		}
		msg, err := wh.relayService.Submit(c.Request.Context(), chatID, types.SenderOperator, payloadString(p, "message"))
		if err != nil {
			deliver(client, realtime.ErrorEvent("failed to send message"))
			return
		}
		deliver(client, realtime.Event{
			Type: realtime.EventMessageSent,
			Payload: map[string]any{
				"id":        msg.ID,
				"chatId":    msg.ChatID,
				"timestamp": msg.Timestamp,
			},
		})

	case realtime.EventTyping:
		chatID, ok := payloadChatID(p)
		if !ok {
			return
		}
		wh.hub.RelayTyping(chatID, client, realtime.Event{
			Type:    realtime.EventTypingStatus,
			Payload: map[string]any{"chatId": chatID, "isTyping": payloadBool(p, "isTyping"), "sender": string(realtime.RoleOperator)},
		})

	default:
		deliver(client, realtime.ErrorEvent("unknown event type"))
	}
}
