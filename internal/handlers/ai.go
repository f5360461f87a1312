package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meetdshah26/backend-chatbot/internal/services"
)

// AIHandler exposes the runtime assistant controls to the admin console.
type AIHandler struct {
	settings         *services.AISettings
	assistantService services.AssistantService
}

func NewAIHandler(settings *services.AISettings, assistantService services.AssistantService) *AIHandler {
	return &AIHandler{settings: settings, assistantService: assistantService}
}

func (ai *AIHandler) Status(c *gin.Context) {
	RespondOK(c, gin.H{"enabled": ai.settings.Enabled()})
}

func (ai *AIHandler) Toggle(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ai.settings.SetEnabled(*req.Enabled)
	RespondOK(c, gin.H{"enabled": ai.settings.Enabled()})
}

func (ai *AIHandler) GetSystemPrompt(c *gin.Context) {
	RespondOK(c, gin.H{"systemPrompt": ai.settings.SystemPrompt()})
}

func (ai *AIHandler) SetSystemPrompt(c *gin.Context) {
	var req struct {
		SystemPrompt string `json:"systemPrompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := ai.settings.SetSystemPrompt(req.SystemPrompt); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_prompt", err)
		return
	}
	RespondOK(c, gin.H{"systemPrompt": ai.settings.SystemPrompt()})
}

func (ai *AIHandler) GetSettings(c *gin.Context) {
	RespondOK(c, ai.settings.Snapshot())
}

func (ai *AIHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := ai.settings.UpdateParams(req.Model, req.Temperature, req.MaxTokens); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_settings", err)
		return
	}
	RespondOK(c, ai.settings.Snapshot())
}

func (ai *AIHandler) Suggestions(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	chatID, err := uuid.Parse(req.ChatID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", err)
		return
	}

	suggestions, err := ai.assistantService.SuggestReplies(c.Request.Context(), chatID)
	if err != nil {
		RespondMapped(c, "suggestions_failed", err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}
