package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/api/handlers"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/api/middleware"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/config"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/session"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, repos *database.Repositories, logger *logrus.Logger, wsHub *websocket.Hub, manager *session.Manager) *gin.Engine {
	// Set gin mode based on config
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.ErrorResponseMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())

	// Initialize handlers
	h := handlers.NewHandlers(cfg, repos, logger, wsHub, manager)

	// Public routes
	router.GET("/health", h.Health)

	// WebSocket endpoint for the alert stream
	router.GET("/ws", h.WebSocketHandler(wsHub))

	// Prometheus scrape endpoint
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 routes
	api := router.Group("/api/v1")
	{
		// Session lifecycle
		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.StartSession)
			sessions.POST("/end", h.EndSession)
			sessions.GET("", h.GetSessions)
			sessions.GET("/:id", h.GetSession)
			sessions.GET("/:id/results", h.GetSessionResults)
		}

		// Telemetry ingest
		collect := api.Group("/collect")
		{
			collect.POST("/scan", h.CollectScan)
			collect.POST("/performance", h.CollectPerformance)
			collect.POST("/interaction", h.CollectInteraction)
			collect.POST("/error", h.CollectError)
			collect.POST("/environment", h.CollectEnvironment)
		}

		// Export
		api.GET("/export", h.ExportData)
	}

	return router
}
