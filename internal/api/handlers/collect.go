package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/pkg/utils"
)

// Ingest endpoints accept instrumentation signals from the scanner app.
// Collection never fails: with no active session the record is dropped with
// a warning server-side, and the caller still gets a 202. Instrumentation
// must not be able to break the app under test.

// CollectScan ingests a barcode scan outcome as a result record
func (h *Handlers) CollectScan(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	normalized := h.collectors.Normalize("scan", payload)
	h.manager.CollectResult(c.Request.Context(), "barcode_scan", normalized)

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// CollectPerformance ingests a numeric performance sample as a metric
// record. The sample's "type" and "value" fields are lifted out; everything
// else stays as metric context.
func (h *Handlers) CollectPerformance(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	normalized := h.collectors.Normalize("performance", payload)

	metricType, ok := normalized.String("type")
	if !ok || metricType == "" {
		utils.SendError(c, http.StatusBadRequest, "Performance sample requires a type")
		return
	}
	value, ok := normalized.Float("value")
	if !ok {
		utils.SendError(c, http.StatusBadRequest, "Performance sample requires a numeric value")
		return
	}

	context := make(models.JSONMap, len(normalized))
	for k, v := range normalized {
		if k == "type" || k == "value" {
			continue
		}
		context[k] = v
	}

	h.manager.CollectMetric(c.Request.Context(), metricType, value, context)

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// CollectInteraction ingests a user interaction as an event record
func (h *Handlers) CollectInteraction(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	normalized := h.collectors.Normalize("interaction", payload)
	h.manager.CollectEvent(c.Request.Context(), "user_interaction", normalized)

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// CollectError ingests an uncaught application error as an event record
func (h *Handlers) CollectError(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	normalized := h.collectors.Normalize("error", payload)
	h.manager.CollectEvent(c.Request.Context(), "error", normalized)

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// CollectEnvironment ingests an ambient environment change, e.g. a network
// connectivity transition, as an event record
func (h *Handlers) CollectEnvironment(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	normalized := h.collectors.Normalize("environment", payload)

	eventType, ok := normalized.String("type")
	if !ok || eventType == "" {
		eventType = "network_change"
	}

	h.manager.CollectEvent(c.Request.Context(), eventType, normalized)

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (h *Handlers) bindPayload(c *gin.Context) (models.JSONMap, bool) {
	var payload models.JSONMap
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return payload, true
}
