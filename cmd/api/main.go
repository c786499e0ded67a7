package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/config"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/di"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/persistence/schema"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	// Against dynamodb-local the table will not exist yet; create it.
	if cfg.DynamoEndpoint != "" {
		if err := schema.EnsureTable(ctx, container.Client, cfg.DynamoDBTable, logger); err != nil {
			logger.Fatal("Failed to ensure table", zap.Error(err))
		}
	}

	// Tracing
	shutdownTracing, err := observability.InitTracing(ctx, "insight-journey-api", cfg.OTLPEndpoint, cfg.EnableTracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Hot-reloadable configuration overlay
	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize config watcher", zap.Error(err))
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	handler := container.Router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracing shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
