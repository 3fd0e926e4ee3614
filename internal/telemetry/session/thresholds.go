package session

import (
	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// checkResultThresholds runs the inline analysis pass after a collected
// result. Synthetic alert events land in the session's event sequence like
// any externally sourced event. Caller must hold the mutex.
func (m *Manager) checkResultThresholds(result *models.Result) {
	if result.Type != "barcode_scan" {
		return
	}

	scanTime, hasScanTime := result.Payload.Float("scanTime")
	if hasScanTime && scanTime > m.slowScanThresholdMs {
		m.raiseAlert("performance_alert", models.JSONMap{
			"type":      "slow_scan",
			"scanTime":  scanTime,
			"threshold": m.slowScanThresholdMs,
		})
	}

	// A missing or non-boolean success field counts as a failure, matching
	// how the analytics pass classifies scans.
	if success, _ := result.Payload.Bool("success"); !success {
		payload := models.JSONMap{}
		if barcode, ok := result.Payload.String("barcode"); ok {
			payload["barcode"] = barcode
		}
		if reason, ok := result.Payload.String("error"); ok {
			payload["error"] = reason
		}
		if attempt, ok := result.Payload.Float("attempt"); ok {
			payload["attempt"] = attempt
		}
		m.raiseAlert("scan_failure", payload)
	}
}

// checkMetricThresholds compares a collected metric against the fixed
// threshold table. Caller must hold the mutex.
func (m *Manager) checkMetricThresholds(metric *models.Metric) {
	threshold, ok := m.metricThresholds[metric.Type]
	if !ok {
		return
	}

	if metric.Value > threshold {
		m.raiseAlert("performance_threshold_exceeded", models.JSONMap{
			"metric":    metric.Type,
			"value":     metric.Value,
			"threshold": threshold,
			"context":   metric.Context,
		})
	}
}

// raiseAlert appends a synthetic alert event and fans it out to observers.
// Caller must hold the mutex.
func (m *Manager) raiseAlert(alertType string, payload models.JSONMap) {
	event := m.appendEvent(alertType, payload)

	m.logger.WithFields(logrus.Fields{
		"session_id": m.current.ID,
		"alert":      alertType,
	}).Debug("Threshold alert raised")

	if m.recorder != nil {
		m.recorder.RecordAlert(alertType)
	}
	if m.alerts != nil {
		m.alerts.BroadcastAlert(event)
	}
}
