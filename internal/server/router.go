package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/meetdshah26/backend-chatbot/internal/handlers"
	"github.com/meetdshah26/backend-chatbot/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string

	ChatHandler    *handlers.ChatHandler
	AdminHandler   *handlers.AdminHandler
	AIHandler      *handlers.AIHandler
	WSHandler      *handlers.WSHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/ws", cfg.WSHandler.Visitor)

	api := router.Group("/api")
	{
		api.POST("/chat/init", cfg.ChatHandler.Init)
		api.POST("/chat/message", cfg.ChatHandler.SendMessage)
		api.GET("/chat/history/:sessionToken", cfg.ChatHandler.History)
		api.POST("/admin/login", cfg.AdminHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAdmin())
	// Operator realtime
	protected.GET("/ws/operator", cfg.WSHandler.Operator)
	// Chats
	protected.GET("/api/admin/chats", cfg.AdminHandler.ListChats)
	protected.GET("/api/admin/chats/:id", cfg.AdminHandler.GetChat)
	protected.GET("/api/admin/chats/:id/messages", cfg.AdminHandler.ListMessages)
	protected.PUT("/api/admin/chats/:id/close", cfg.AdminHandler.CloseChat)
	// AI controls
	protected.GET("/api/ai/status", cfg.AIHandler.Status)
	protected.POST("/api/ai/toggle", cfg.AIHandler.Toggle)
	protected.GET("/api/ai/system-prompt", cfg.AIHandler.GetSystemPrompt)
	protected.PUT("/api/ai/system-prompt", cfg.AIHandler.SetSystemPrompt)
	protected.GET("/api/ai/settings", cfg.AIHandler.GetSettings)
	protected.POST("/api/ai/settings", cfg.AIHandler.UpdateSettings)
	protected.POST("/api/ai/suggestions", cfg.AIHandler.Suggestions)

	return router
}

// SplitOrigins parses a comma separated origin list from the environment.
func SplitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
