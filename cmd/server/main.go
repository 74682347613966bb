package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"casedb-backend/bootstrap"
	"casedb-backend/config"
	"casedb-backend/handlers"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	// Initialize handlers
	caseHandler := handlers.NewCaseHandler(app.Search)
	judgmentHandler := handlers.NewJudgmentHandler(app.Pipeline)
	var runHandler *handlers.RunHandler
	if app.Runs != nil {
		runHandler = handlers.NewRunHandler(app.Runs)
	}

	r := handlers.NewRouter(caseHandler, judgmentHandler, runHandler)

	logger.Info("server starting", "port", cfg.Port, "backend", cfg.DatasetBackend)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
