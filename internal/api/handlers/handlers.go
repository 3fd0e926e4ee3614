package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/config"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/collectors"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/export"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/session"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/websocket"
	"github.com/nutrifit-ops/scan-telemetry-go/pkg/utils"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg        *config.Config
	repos      *database.Repositories
	log        *logrus.Logger
	wsHub      *websocket.Hub
	manager    *session.Manager
	collectors *collectors.Registry
	exporter   *export.Exporter
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, repos *database.Repositories, logger *logrus.Logger, wsHub *websocket.Hub, manager *session.Manager) *Handlers {
	return &Handlers{
		cfg:        cfg,
		repos:      repos,
		log:        logger,
		wsHub:      wsHub,
		manager:    manager,
		collectors: collectors.NewRegistry(),
		exporter:   export.NewExporter(repos.Session, logger),
	}
}

// Health returns the health status of the service
func (h *Handlers) Health(c *gin.Context) {
	health := gin.H{
		"status":         "healthy",
		"timestamp":      nowRFC3339(),
		"service":        "scan-telemetry-go",
		"version":        "1.0.0",
		"session_active": h.manager.Active(),
		"ws_clients":     h.wsHub.GetClientCount(),
	}

	utils.SendSuccess(c, health)
}

// WebSocketHandler upgrades the connection and attaches it to the hub
func (h *Handlers) WebSocketHandler(hub *websocket.Hub) gin.HandlerFunc {
	return websocket.HandleWebSocketGin(hub)
}

func nowRFC3339() string {
	return time.Now().Format(time.RFC3339)
}
