package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tickbol/internal/cache"
	"tickbol/internal/config"
	"tickbol/internal/database"
	"tickbol/internal/handlers"
	"tickbol/internal/logger"
	"tickbol/internal/messaging"
	"tickbol/internal/middleware"
	"tickbol/internal/repository"
	"tickbol/internal/service"
)

// Server wires the HTTP API together: database, NATS, cache, repositories,
// services and routes.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	// The auth cache is optional; without it every request hits Postgres.
	var valkeyClient *cache.ValkeyClient
	if cfg.Valkey.Addr != "" {
		valkeyClient, err = cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			slog.Warn("Valkey unavailable, staff auth falls back to database", "error", err)
			valkeyClient = nil
		}
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, natsClient, cfg)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.BasicAuth(s.repos.Staff, s.valkey))
	{
		purchases := api.Group("/purchases")
		{
			purchases.POST("", h.CreatePurchase)
			purchases.GET("", h.ListPurchases)
			purchases.GET("/:id", h.GetPurchase)
			purchases.PATCH("/submitPayment", h.SubmitPayment)
			purchases.PATCH("/verifyPayment", h.VerifyPayment)
			purchases.PATCH("/complete", h.CompletePurchase)
			purchases.PATCH("/cancel", h.CancelPurchase)
		}

		tickets := api.Group("/tickets")
		{
			tickets.POST("/issue", h.IssueTickets)
			tickets.GET("", h.ListTickets)
			tickets.GET("/:id", h.GetTicket)
		}

		porteria := api.Group("/porteria")
		porteria.Use(middleware.AdminOrPorteria())
		{
			porteria.POST("/validate", h.ValidateTicket)
			porteria.GET("/validations", h.ListValidations)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("/:purchaseId", h.GetNotificationStatus)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", middleware.MetricsHandler())
}

func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())
	if check.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"service":  "tickbol-api",
			"database": check,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "tickbol-api",
		"database": check,
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes external connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
