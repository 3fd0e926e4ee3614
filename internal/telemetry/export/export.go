package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
)

// Known export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Bundle is the structured export payload: one or all stored sessions.
type Bundle struct {
	ExportedAt time.Time             `json:"exported_at"`
	Sessions   []*models.TestSession `json:"sessions"`
}

// Exporter serializes stored sessions to an interchange format.
type Exporter struct {
	sessions repositories.SessionRepository
	logger   *logrus.Logger
}

// NewExporter creates an exporter backed by the session store.
func NewExporter(sessions repositories.SessionRepository, logger *logrus.Logger) *Exporter {
	return &Exporter{sessions: sessions, logger: logger}
}

// ExportData serializes one session (when sessionID is non-empty) or all
// stored sessions. "json" yields a pretty-printed string, "csv" one row per
// session; any other format returns the structured bundle unserialized.
func (e *Exporter) ExportData(ctx context.Context, sessionID, format string) (interface{}, error) {
	bundle, err := e.collect(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize export: %w", err)
		}
		return string(data), nil
	case FormatCSV:
		return e.toCSV(bundle), nil
	default:
		e.logger.WithField("format", format).Debug("Unknown export format, returning structured data")
		return bundle, nil
	}
}

func (e *Exporter) collect(ctx context.Context, sessionID string) (*Bundle, error) {
	bundle := &Bundle{ExportedAt: time.Now()}

	if sessionID != "" {
		session, err := e.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
		if session == nil {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		bundle.Sessions = []*models.TestSession{session}
		return bundle, nil
	}

	sessions, err := e.sessions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	bundle.Sessions = sessions
	return bundle, nil
}

// toCSV renders one row per session: id, ISO start time, duration, success
// rate, average scan time, device platform, browser.
func (e *Exporter) toCSV(bundle *Bundle) string {
	var output strings.Builder
	output.WriteString("session_id,start_time,duration_ms,success_rate,avg_scan_time,platform,browser\n")

	for _, session := range bundle.Sessions {
		var successRate, avgScanTime string
		if session.Analytics != nil && session.Analytics.Scanning != nil && !session.Analytics.Scanning.NoData {
			successRate = fmt.Sprintf("%.1f", session.Analytics.Scanning.SuccessRate)
			avgScanTime = fmt.Sprintf("%.1f", session.Analytics.Scanning.AverageScanTime)
		}

		var platform, userAgent string
		if session.Environment != nil {
			platform = session.Environment.Platform
			userAgent = session.Environment.UserAgent
		}

		output.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s\n",
			session.ID,
			session.StartTime.Format(time.RFC3339),
			session.DurationMs,
			successRate,
			avgScanTime,
			platform,
			DetectBrowser(userAgent),
		))
	}

	return output.String()
}

// DetectBrowser parses a browser name from a user-agent string by simple
// case-insensitive substring matching. Chrome UAs also contain "safari",
// so "chrome" is checked before "safari" counts.
func DetectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return "Safari"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "edge"):
		return "Edge"
	default:
		return "Unknown"
	}
}
