package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kalamitra/backend/internal/bus"
	"github.com/kalamitra/backend/internal/cache"
	"github.com/kalamitra/backend/internal/database"
	"github.com/kalamitra/backend/internal/fanout"
	"github.com/kalamitra/backend/internal/handlers"
	"github.com/kalamitra/backend/internal/interaction"
	"github.com/kalamitra/backend/internal/middleware"
	"github.com/kalamitra/backend/internal/store"
)

type Server struct {
	db        *database.Database
	dbService database.Service
	handler   *handlers.Handler
}

// NewServer creates and configures a new server
func NewServer() *http.Server {
	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	dbService := database.New()
	st := store.NewGorm(dbService.GetDB())

	eventBus := bus.New()
	hub := fanout.New()
	coordinator := interaction.NewCoordinator(st, eventBus, hub)
	agCache := cache.New()

	watchPermissionEvents(eventBus)

	// Create unified handler
	handler := handlers.NewHandler(dbService.GetDB(), st, coordinator, hub, agCache)

	// Create server instance
	newServer := &Server{
		db:        db,
		dbService: dbService,
		handler:   handler,
	}

	// Configure Gin router
	router := newServer.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // local dev fallback
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// watchPermissionEvents drains the error channel so every authorization
// rejection is logged exactly once, no matter which request produced it.
func watchPermissionEvents(b *bus.Bus) {
	events, err := b.SubscribePermissionDenied(context.Background())
	if err != nil {
		log.Fatalf("Failed to subscribe to permission events: %v", err)
	}
	go func() {
		for ev := range events {
			log.Printf("🚫 Permission denied: %s on %s", ev.Operation, ev.Path)
		}
	}()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.dbService.Health())
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Challenge and submission routes (public reads)
		api.GET("/challenges", s.handler.Post.GetChallenges)
		api.GET("/challenges/:challengeId/submissions", s.handler.Post.GetSubmissions)
		api.GET("/challenges/:challengeId/submissions/:submissionId/aggregate", s.handler.Interaction.GetSubmissionAggregate)
		api.GET("/challenges/:challengeId/submissions/:submissionId/aggregate/stream", s.handler.Interaction.StreamSubmissionAggregate)
		api.GET("/challenges/:challengeId/submissions/:submissionId/comments", s.handler.Interaction.GetSubmissionComments)

		// Story routes (public reads)
		api.GET("/stories", s.handler.Post.GetStories)
		api.GET("/stories/:storyId/aggregate", s.handler.Interaction.GetStoryAggregate)
		api.GET("/stories/:storyId/aggregate/stream", s.handler.Interaction.StreamStoryAggregate)
		api.GET("/stories/:storyId/comments", s.handler.Interaction.GetStoryComments)

		// User routes (public reads)
		api.GET("/users/:userId", s.handler.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)

			// Content protected routes
			protected.POST("/challenges", s.handler.Post.CreateChallenge)
			protected.POST("/challenges/:challengeId/submissions", s.handler.Post.CreateSubmission)
			protected.POST("/stories", s.handler.Post.CreateStory)

			// Interaction protected routes
			protected.POST("/challenges/:challengeId/submissions/:submissionId/vote", s.handler.Interaction.VoteSubmission)
			protected.POST("/challenges/:challengeId/submissions/:submissionId/comments", s.handler.Interaction.CommentSubmission)
			protected.POST("/stories/:storyId/react", s.handler.Interaction.ReactStory)
			protected.POST("/stories/:storyId/comments", s.handler.Interaction.CommentStory)
		}
	}

	return r
}
