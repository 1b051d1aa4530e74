package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/container"
	"go-structural-validator/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development; the environment wins otherwise
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	c, err := container.NewContainer(cfg, container.Dependencies{})
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Worker pool for enhance jobs
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	c.Orchestrator().Start(workerCtx)

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithField("address", cfg.ServerAddress()).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	stopWorkers()
	c.Orchestrator().Wait()
	logger.Info("Server exited")
}
