package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/export"
	"github.com/nutrifit-ops/scan-telemetry-go/pkg/utils"
)

// ExportData serializes one or all stored sessions. CSV is served as a
// download, JSON as a pretty-printed document, anything else as the
// structured bundle.
func (h *Handlers) ExportData(c *gin.Context) {
	sessionID := c.Query("session_id")
	format := c.DefaultQuery("format", export.FormatJSON)

	data, err := h.exporter.ExportData(c.Request.Context(), sessionID, format)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.SendError(c, http.StatusNotFound, err.Error())
			return
		}
		utils.SendError(c, http.StatusInternalServerError, "Export failed: "+err.Error())
		return
	}

	switch strings.ToLower(format) {
	case export.FormatCSV:
		c.Header("Content-Disposition", `attachment; filename="telemetry-export.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(data.(string)))
	case export.FormatJSON:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(data.(string)))
	default:
		c.JSON(http.StatusOK, data)
	}
}
