package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/services"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

type AdminHandler struct {
	authService      services.AuthService
	assistantService services.AssistantService
	chatRepo         repos.ChatRepo
	visitorRepo      repos.VisitorRepo
	messageRepo      repos.MessageRepo
}

func NewAdminHandler(
	authService services.AuthService,
	assistantService services.AssistantService,
	chatRepo repos.ChatRepo,
	visitorRepo repos.VisitorRepo,
	messageRepo repos.MessageRepo,
) *AdminHandler {
	return &AdminHandler{
		authService:      authService,
		assistantService: assistantService,
		chatRepo:         chatRepo,
		visitorRepo:      visitorRepo,
		messageRepo:      messageRepo,
	}
}

func (ah *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	token, err := ah.authService.Login(req.Username, req.Password)
	if err != nil {
		RespondMapped(c, "login_failed", err)
		return
	}
	RespondOK(c, gin.H{"token": token})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func (ah *AdminHandler) ListChats(c *gin.Context) {
	status := c.Query("status")
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	chats, err := ah.chatRepo.List(c.Request.Context(), nil, status, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_chats_failed", err)
		return
	}
	total, err := ah.chatRepo.Count(c.Request.Context(), nil, status)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "count_chats_failed", err)
		return
	}

	views := make([]gin.H, 0, len(chats))
	for _, chat := range chats {
		view := gin.H{
			"id":        chat.ID,
			"visitorId": chat.VisitorID,
			"status":    chat.Status,
			"createdAt": chat.CreatedAt,
			"updatedAt": chat.UpdatedAt,
		}
		if visitor, verr := ah.visitorRepo.GetByID(c.Request.Context(), nil, chat.VisitorID); verr == nil {
			view["sessionToken"] = visitor.SessionToken
			view["visitorOnline"] = visitor.IsActive
		}
		if latest, merr := ah.messageRepo.LatestByChat(c.Request.Context(), nil, chat.ID); merr == nil {
			view["lastMessage"] = messageView(latest)
		}
		views = append(views, view)
	}

	RespondOK(c, gin.H{"chats": views, "total": total})
}

func (ah *AdminHandler) GetChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return
	}

	chat, err := ah.chatRepo.GetByID(c.Request.Context(), nil, chatID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "chat_not_found", err)
		return
	}
	messages, err := ah.messageRepo.ListByChat(c.Request.Context(), nil, chat.ID, 0, 0)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_messages_failed", err)
		return
	}

	view := gin.H{
		"id":        chat.ID,
		"visitorId": chat.VisitorID,
		"status":    chat.Status,
		"createdAt": chat.CreatedAt,
		"updatedAt": chat.UpdatedAt,
		"messages":  messageViews(messages),
	}
	if visitor, verr := ah.visitorRepo.GetByID(c.Request.Context(), nil, chat.VisitorID); verr == nil {
		view["sessionToken"] = visitor.SessionToken
		view["visitorOnline"] = visitor.IsActive
	}

	RespondOK(c, view)
}

func (ah *AdminHandler) ListMessages(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	if _, err := ah.chatRepo.GetByID(c.Request.Context(), nil, chatID); err != nil {
		RespondError(c, http.StatusNotFound, "chat_not_found", err)
		return
	}
	messages, err := ah.messageRepo.ListByChat(c.Request.Context(), nil, chatID, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_messages_failed", err)
		return
	}
	total, err := ah.messageRepo.CountByChat(c.Request.Context(), nil, chatID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "count_messages_failed", err)
		return
	}

	RespondOK(c, gin.H{"chatId": chatID, "messages": messageViews(messages), "total": total})
}

func (ah *AdminHandler) CloseChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return
	}

	chat, err := ah.chatRepo.Close(c.Request.Context(), nil, chatID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "chat_not_found", err)
		return
	}
	ah.assistantService.Forget(chat.ID)

	RespondOK(c, gin.H{"id": chat.ID, "status": types.ChatStatusClosed})
}
