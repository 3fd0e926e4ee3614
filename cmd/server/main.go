package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/api"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/config"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/metrics"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/retention"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/environment"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/session"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/websocket"
	"github.com/nutrifit-ops/scan-telemetry-go/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger.SetLevel(log, cfg.Logging.Level)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Create repositories
	repos := database.NewRepositories(db)

	// Create WebSocket hub for the alert stream
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Operational metrics
	collector := metrics.NewCollector(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Prefix:  cfg.Metrics.Prefix,
	})

	// Session manager with environment capture, alert fan-out and metrics
	manager := session.NewManager(session.Options{
		Sessions:  repos.Session,
		Results:   repos.Result,
		Metrics:   repos.Metric,
		Env:       environment.NewCapturer(log),
		Alerts:    wsHub,
		Recorder:  collector,
		Logger:    log,
		Telemetry: cfg.Telemetry,
	})

	// Retention job pruning closed sessions past the configured window
	var retentionJob *retention.Job
	if cfg.Retention.Enabled {
		retentionJob = retention.NewJob(repos.Session, log, cfg.RetentionMaxAge(), cfg.Retention.Schedule)
		if err := retentionJob.Start(); err != nil {
			log.WithError(err).Warn("Failed to start retention job")
			retentionJob = nil
		}
	}

	// Initialize router
	router := api.NewRouter(cfg, repos, log, wsHub, manager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting scan telemetry service on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close any open session so its records are finalized and persisted
	if manager.Active() {
		log.Info("Ending open test session before shutdown...")
		if _, err := manager.EndSession(ctx); err != nil {
			log.WithError(err).Warn("Failed to persist session during shutdown")
		}
	}

	if retentionJob != nil {
		retentionJob.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Info("Server exited")
}
