package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meetdshah26/backend-chatbot/internal/clients/openai"
	"github.com/meetdshah26/backend-chatbot/internal/db"
	"github.com/meetdshah26/backend-chatbot/internal/handlers"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/middleware"
	"github.com/meetdshah26/backend-chatbot/internal/realtime"
	"github.com/meetdshah26/backend-chatbot/internal/realtime/bus"
	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/server"
	"github.com/meetdshah26/backend-chatbot/internal/services"
	"github.com/meetdshah26/backend-chatbot/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	visitorRepo := repos.NewVisitorRepo(thePG, log)
	chatRepo := repos.NewChatRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)

	// Realtime
	log.Info("Setting up realtime hub now...")
	hub := realtime.NewHub(log)
	presence := realtime.NewPresence(log)

	// Events stay in-process unless REDIS_ADDR points at a broker; then
	// they fan out through the bus so every replica sees every frame.
	var emitter realtime.Emitter = hub
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	if redisAddr != "" {
		eventBus, berr := bus.NewRedisBus(log)
		if berr != nil {
			log.Error("Could not init redis bus", "error", berr)
			os.Exit(1)
		}
		defer eventBus.Close()

		emitter = &realtime.BusEmitter{Bus: eventBus}
		if err := eventBus.StartForwarder(context.Background(), func(msg realtime.BusMessage) {
			realtime.Forward(hub, msg)
		}); err != nil {
			log.Error("Could not start bus forwarder", "error", err)
			os.Exit(1)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	aiSettings := services.NewAISettingsFromEnv(log)
	assistantService := services.NewAssistantService(openaiClient, aiSettings, messageRepo, log)
	sessionService := services.NewSessionService(thePG, log, visitorRepo, chatRepo, messageRepo, hub, presence, emitter)
	relayService := services.NewRelayService(log, chatRepo, visitorRepo, messageRepo, emitter, assistantService, aiSettings)
	authService, err := services.NewAuthService(log)
	if err != nil {
		log.Error("Could not init AuthService", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up Handlers from main...")
	chatHandler := handlers.NewChatHandler(sessionService, relayService)
	adminHandler := handlers.NewAdminHandler(authService, assistantService, chatRepo, visitorRepo, messageRepo)
	aiHandler := handlers.NewAIHandler(aiSettings, assistantService)
	wsHandler := handlers.NewWSHandler(log, hub, presence, sessionService, relayService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins: server.SplitOrigins(utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)),
		ChatHandler:    chatHandler,
		AdminHandler:   adminHandler,
		AIHandler:      aiHandler,
		WSHandler:      wsHandler,
		AuthMiddleware: authMiddleware,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
