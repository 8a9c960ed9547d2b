package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/storyhub/internal/app"
	"github.com/alimgiray/storyhub/internal/handlers"
	"github.com/alimgiray/storyhub/internal/workers"
	"github.com/alimgiray/storyhub/pkg/config"
	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize storage and services
	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer a.Close()

	// Initialize router
	router := handlers.NewRouter(a.Services, a.Docs, handlers.RouterOptions{
		APIToken:       cfg.Auth.APIToken,
		MaxUploadBytes: 64 << 20,
	})

	// Start workers
	workerManager := workers.NewWorkerManager()
	if cfg.Purge.Enabled {
		workerManager.Add(workers.NewPurgeWorker("purge-1", a.Services.Purge, cfg.Purge.Interval))
	}
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}
	defer workerManager.StopAll()

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
	logger.Infof("Server stopped")
}
