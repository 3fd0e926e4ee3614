package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	pkgerrors "github.com/nutrifit-ops/scan-telemetry-go/pkg/errors"
	"github.com/nutrifit-ops/scan-telemetry-go/pkg/utils"
)

// StartSessionRequest carries the optional test configuration. Client
// environment signals (user_agent, platform, screen, battery) ride along
// inside the config map.
type StartSessionRequest struct {
	Config models.JSONMap `json:"config"`
}

// StartSession opens a new test session
func (h *Handlers) StartSession(c *gin.Context) {
	var req StartSessionRequest
	// An empty body means a session with no test configuration.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sessionID, err := h.manager.StartSession(c.Request.Context(), req.Config)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrSessionAlreadyActive) {
			utils.SendError(c, http.StatusConflict, "A test session is already active")
			return
		}
		utils.SendError(c, http.StatusInternalServerError, "Failed to start session: "+err.Error())
		return
	}

	utils.SendCreated(c, gin.H{
		"session_id": sessionID,
		"started_at": nowRFC3339(),
	})
}

// EndSession finalizes the open session and returns it with analytics
// attached. A persistence failure is reported but the finalized session is
// still returned.
func (h *Handlers) EndSession(c *gin.Context) {
	session, err := h.manager.EndSession(c.Request.Context())
	if session == nil && err == nil {
		utils.SendError(c, http.StatusConflict, "No active test session")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("Session finalized but not persisted")
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      session,
			"warning":   "session was not persisted: " + err.Error(),
			"timestamp": nowRFC3339(),
		})
		return
	}

	utils.SendSuccess(c, session)
}

// GetSessions lists stored sessions, newest first
func (h *Handlers) GetSessions(c *gin.Context) {
	sessions, err := h.repos.Session.GetAll(c.Request.Context())
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to load sessions: "+err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns a single stored session with its records hydrated
func (h *Handlers) GetSession(c *gin.Context) {
	id := c.Param("id")

	session, err := h.repos.Session.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to load session: "+err.Error())
		return
	}
	if session == nil {
		utils.SendError(c, http.StatusNotFound, "Session not found: "+id)
		return
	}

	utils.SendSuccess(c, session)
}

// GetSessionResults returns the stored results for a session in capture
// order
func (h *Handlers) GetSessionResults(c *gin.Context) {
	id := c.Param("id")

	session, err := h.repos.Session.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to load session: "+err.Error())
		return
	}
	if session == nil {
		utils.SendError(c, http.StatusNotFound, "Session not found: "+id)
		return
	}

	results, err := h.repos.Result.GetBySessionID(c.Request.Context(), id)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to load results: "+err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{
		"session_id": id,
		"results":    results,
		"count":      len(results),
	})
}
