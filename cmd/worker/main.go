package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jashneer/HireIQ/internal/config"
	"github.com/Jashneer/HireIQ/internal/database"
	"github.com/Jashneer/HireIQ/internal/entitlement"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/internal/metrics"
	"github.com/Jashneer/HireIQ/internal/queue"
	"github.com/Jashneer/HireIQ/internal/quota"
	"github.com/Jashneer/HireIQ/pkg/models"
)

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

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	updater := entitlement.NewUpdater(repo, quota.NewLockRegistry(), logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	// Event handler
	eventHandler := func(event *models.EntitlementChangeEvent) error {
		outcome, err := updater.ApplyChange(ctx, event)
		if err != nil {
			metrics.EntitlementEventsTotal.WithLabelValues(metrics.EntitlementOutcomeFailed).Inc()
			logger.WithError(err).Error("Failed to apply entitlement change")
			return err
		}

		switch outcome {
		case entitlement.OutcomeUnresolved:
			metrics.EntitlementEventsTotal.WithLabelValues(metrics.EntitlementOutcomeUnresolved).Inc()
		default:
			metrics.EntitlementEventsTotal.WithLabelValues(metrics.EntitlementOutcomeApplied).Inc()
		}
		return nil
	}

	// Start consuming entitlement events
	logger.Info("Worker started, waiting for entitlement events...")
	if err := q.ConsumeEntitlementChanges(ctx, eventHandler); err != nil {
		logger.Fatalf("Failed to consume events: %v", err)
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("Worker stopped")
}
