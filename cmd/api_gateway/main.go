package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleet-diesel-ledger/internal/api_gateway"
	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/config"
	dmongo "github.com/fleet-diesel-ledger/internal/data/mongo"
	"github.com/fleet-diesel-ledger/internal/data/postgres"
	"github.com/fleet-diesel-ledger/internal/logger"
	"github.com/fleet-diesel-ledger/internal/platform/messaging/producers"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
	"github.com/fleet-diesel-ledger/internal/reconciliation/anomaly"
	"github.com/fleet-diesel-ledger/internal/reconciliation/efficiency"
	"github.com/fleet-diesel-ledger/internal/reconciliation/linkage"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers (import batches + trigger events)
	batchProducer, err := producers.NewImportBatchMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize import batch producer", "error", err)
		os.Exit(1)
	}

	triggerProducer, err := producers.NewTriggerPublisher(appCtx, log, &cfg.Kafka, &cfg.Trigger)
	if err != nil {
		log.Error("Failed to initialize trigger publisher", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	dieselRepo := postgres.NewDieselRepository(log, postgresDB)
	tripRepo := postgres.NewTripRepository(log, postgresDB)
	normRepo := postgres.NewNormRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := dmongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize reconciliation components
	analyzer := efficiency.NewAnalyzer(log)
	detector := anomaly.NewDetector(log)
	coordinator := linkage.NewCoordinator(postgresDB, dieselRepo, tripRepo, outboxRepo, log)
	probeFleets := cfg.Fleet.ProbeEquippedSet()

	// Initialize services
	recordService := service.NewRecordService(log, postgresDB, dieselRepo, normRepo, outboxRepo, coordinator, analyzer, detector, probeFleets)
	tripService := service.NewTripService(tripRepo)
	alertService := service.NewAlertService(log, dieselRepo, detector, probeFleets)
	importService := service.NewImportService(log, batchProducer, triggerProducer)
	auditService := service.NewAuditService(auditRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, recordService, tripService, alertService, importService, auditService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = batchProducer.Close(); err != nil {
		log.Error("Error closing import batch producer", "error", err)
	}

	if err = triggerProducer.Close(); err != nil {
		log.Error("Error closing trigger publisher", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
