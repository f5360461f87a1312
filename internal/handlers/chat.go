package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetdshah26/backend-chatbot/internal/services"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

// ChatHandler is the REST surface visitors use when they are not holding a
// websocket: bootstrapping a session, posting a message, reading history.
type ChatHandler struct {
	sessionService services.SessionService
	relayService   services.RelayService
}

func NewChatHandler(sessionService services.SessionService, relayService services.RelayService) *ChatHandler {
	return &ChatHandler{sessionService: sessionService, relayService: relayService}
}

func messageView(m *types.Message) gin.H {
	return gin.H{
		"id":        m.ID,
		"chatId":    m.ChatID,
		"sender":    m.Sender,
		"message":   m.Body,
		"timestamp": m.Timestamp,
	}
}

func messageViews(msgs []*types.Message) []gin.H {
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView(m))
	}
	return out
}

func (ch *ChatHandler) Init(c *gin.Context) {
	var req struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	sess, err := ch.sessionService.Identify(c.Request.Context(), req.SessionToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondMapped(c, "init_failed", err)
		return
	}

	_, messages, err := ch.sessionService.History(c.Request.Context(), req.SessionToken)
	if err != nil {
		RespondMapped(c, "load_history_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"visitorId":    sess.Visitor.ID,
		"sessionToken": sess.Visitor.SessionToken,
		"chatId":       sess.Chat.ID,
		"status":       sess.Chat.Status,
		"messages":     messageViews(messages),
	})
}

func (ch *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		SessionToken string `json:"sessionToken"`
		Message      string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	sess, err := ch.sessionService.Identify(c.Request.Context(), req.SessionToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondMapped(c, "identify_failed", err)
		return
	}

	msg, err := ch.relayService.Submit(c.Request.Context(), sess.Chat.ID, types.SenderVisitor, req.Message)
	if err != nil {
		RespondMapped(c, "send_failed", err)
		return
	}

	RespondOK(c, messageView(msg))
}

func (ch *ChatHandler) History(c *gin.Context) {
	token := c.Param("sessionToken")

	sess, messages, err := ch.sessionService.History(c.Request.Context(), token)
	if err != nil {
		RespondMapped(c, "load_history_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"chatId":   sess.Chat.ID,
		"status":   sess.Chat.Status,
		"messages": messageViews(messages),
	})
}
