package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jashneer/HireIQ/internal/admission"
	"github.com/Jashneer/HireIQ/internal/auth"
	"github.com/Jashneer/HireIQ/internal/billing"
	"github.com/Jashneer/HireIQ/internal/cache"
	"github.com/Jashneer/HireIQ/internal/config"
	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/internal/metrics"
	"github.com/Jashneer/HireIQ/internal/middleware"
	"github.com/Jashneer/HireIQ/internal/plan"
	"github.com/Jashneer/HireIQ/internal/queue"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/internal/scoring"
	"github.com/Jashneer/HireIQ/internal/stats"
	"github.com/Jashneer/HireIQ/internal/storage"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// Repository is the slice of the database layer the handlers read from.
// The admission gate and auth service hold their own narrower views.
type Repository interface {
	Health(ctx context.Context) error
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]*models.Analysis, error)
}

// ResumeStore is the slice of object storage the resume handlers use.
type ResumeStore interface {
	StoreResume(ctx context.Context, userID, filename string, reader io.Reader, size int64) (string, error)
	ListForUser(ctx context.Context, userID string) ([]string, error)
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, objectName string) error
}

type API struct {
	repo    Repository
	storage ResumeStore
	gate    *admission.Gate
	auth    *auth.Service
	billing *billing.Service
	stats   *stats.Service
	logger  *logging.Logger
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize stats cache. The service runs degraded without it.
	var statsCache stats.Cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, stats caching disabled")
	} else {
		statsCache = redisCache
		defer redisCache.Close()
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize scoring engine
	engine, err := scoring.NewEngine(context.Background(), cfg.Scoring, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scoring engine: %v", err)
	}

	// Wire the admission path
	catalog := plan.NewCatalog(cfg.Plans)
	ledger := quota.NewLedger(catalog)
	locks := quota.NewLockRegistry()
	gate := admission.NewGate(repo, repo, engine, ledger, locks, logger)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	api := &API{
		repo:    repo,
		storage: stor,
		gate:    gate,
		auth:    auth.NewService(repo, tokens, logger),
		billing: billing.NewService(cfg.Billing, q, logger),
		stats:   stats.NewService(repo, statsCache, cfg.Redis.StatsTTL, logger),
		logger:  logger,
	}

	// Setup router
	router := setupRouter(api, tokens, cfg, logger)

	// Start metrics server
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsSrv.Start(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Metrics server shutdown failed")
		}
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, tokens *auth.TokenIssuer, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	// Health check
	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		// Unauthenticated routes are limited per client IP.
		public := v1.Group("")
		public.Use(middleware.RateLimit(limiter))
		{
			public.POST("/auth/register", api.register)
			public.POST("/auth/login", api.login)

			// Billing webhooks are signed, not session-authenticated
			public.POST("/billing/webhook", api.billingWebhook)
		}

		// The limiter runs after JWTAuth so authenticated traffic is keyed
		// per user, not per address.
		authed := v1.Group("")
		authed.Use(middleware.JWTAuth(tokens))
		authed.Use(middleware.RateLimit(limiter))
		{
			authed.GET("/auth/me", api.currentUser)

			// Analyses
			authed.POST("/analyses", api.createAnalysis)
			authed.GET("/analyses", api.listAnalyses)
			authed.GET("/analyses/:id", api.getAnalysis)

			// Stats
			authed.GET("/stats", api.userStats)

			// Resumes
			authed.POST("/resumes", api.uploadResume)
			authed.GET("/resumes", api.listResumes)
			authed.GET("/resumes/download", api.downloadResume)
			authed.DELETE("/resumes", api.deleteResume)
		}
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}
