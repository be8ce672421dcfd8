package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pricewatch/internal/api"
	"pricewatch/internal/app"
	"pricewatch/internal/config"
	"pricewatch/internal/logging"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PRICEWATCH_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// API_PORT is kept for existing deployments
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		cfg.Server.Port = envPort
	}

	logger := logging.New(logging.Level(false, cfg.LogLevel))
	logger.Infof("Environment: %s", cfg.Server.Environment)
	logger.Infof("Search providers: %v (cache TTL %v)", cfg.Search.Providers, cfg.Cache.TTL)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	handler := api.NewHandler(application.Extractor, application.Comparer, application.Batch, cfg.Server.RequestTimeout, logger)
	router := api.SetupRouter(cfg.Server, handler, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting API server on port %s", cfg.Server.Port)
		logger.Info("Available endpoints:")
		logger.Info("  GET  /health")
		logger.Info("  POST /api/v1/extract      - Extract a product page")
		logger.Info("  POST /api/v1/identity     - Derive a matching identity")
		logger.Info("  POST /api/v1/alternatives - Rank a candidate pool")
		logger.Info("  POST /api/v1/compare      - Compare a page, name or guess across stores")
		logger.Info("  POST /api/v1/barcode      - Identify and compare a barcode")
		logger.Info("  POST /api/v1/batch        - Refresh tracked prices")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Forced shutdown: %v", err)
	}
}
