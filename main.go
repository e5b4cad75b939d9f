package main

import (
	"context"

	"datingluck-server/internal/config"
	"datingluck-server/internal/handlers"
	"datingluck-server/internal/middleware"
	"datingluck-server/internal/redis"
	"datingluck-server/internal/services"
	"datingluck-server/internal/store"
	"datingluck-server/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// Document store
	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to store")
	}
	defer db.Disconnect(ctx)

	// Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Blob storage
	blobs, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize blob storage")
	}

	users := db.Users()
	matches := db.Matches()
	messages := db.Messages()
	reports := db.Reports()

	// The hub broadcasts for the chat service and the chat service
	// authorizes and persists for the hub.
	hub := websocket.NewHub(cfg.RequestTimeout)
	interestService := services.NewInterestService(users, matches, redisClient, cfg.PairLockTTL, cfg.MatchCacheTTL)
	feedService := services.NewFeedService(users)
	chatService := services.NewChatService(users, matches, messages, redisClient, hub, cfg.MatchCacheTTL)
	teardownService := services.NewTeardownService(users, matches, messages, reports, redisClient, hub)
	hub.AttachChat(chatService)

	handlers.RegisterValidations()
	authHandler := handlers.NewAuthHandler(users, cfg)
	userHandler := handlers.NewUserHandler(users, feedService, blobs, cfg)
	matchHandler := handlers.NewMatchHandler(interestService, teardownService, cfg)
	messageHandler := handlers.NewMessageHandler(chatService, cfg)

	router := setupRoutes(cfg, authHandler, userHandler, matchHandler, messageHandler, hub)

	logrus.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

func setupRoutes(cfg *config.Config, authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler,
	matchHandler *handlers.MatchHandler, messageHandler *handlers.MessageHandler, hub *websocket.Hub) *gin.Engine {

	router := gin.Default()
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Photo bytes are served straight from disk on the local backend.
	if cfg.StorageBackend == "local" {
		router.Static("/uploads", cfg.LocalUploadDir)
	}

	router.POST("/register", authHandler.Register)
	router.POST("/upload-photos", userHandler.UploadPhotos)
	router.POST("/delete-photo", userHandler.DeletePhoto)
	router.PUT("/update-profile", userHandler.UpdateProfile)
	router.GET("/feed", userHandler.Feed)
	router.GET("/users/:id", userHandler.GetUser)

	router.POST("/like", matchHandler.Like)
	router.GET("/my-matches/:userId", matchHandler.MyMatches)
	router.POST("/unmatch", matchHandler.Unmatch)
	router.POST("/report", matchHandler.Report)

	router.POST("/send-message", messageHandler.SendMessage)
	router.GET("/conversation/:matchId", messageHandler.Conversation)

	router.GET("/ws", func(c *gin.Context) {
		websocket.HandleWebSocket(hub, c)
	})

	return router
}
