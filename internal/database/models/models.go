package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONMap is a free-form payload stored as a JSON column.
type JSONMap map[string]interface{}

// Float reads a numeric field from a payload, tolerating the number types
// that arrive from JSON decoding.
func (m JSONMap) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Bool reads a boolean field from a payload.
func (m JSONMap) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String reads a string field from a payload.
func (m JSONMap) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NewID generates a record id from the current time plus a random suffix.
// Collisions are accepted as practically improbable.
func NewID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// MemoryInfo is the memory portion of an environment snapshot.
type MemoryInfo struct {
	TotalBytes uint64  `json:"total_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	UsedMB     float64 `json:"used_mb"`
	HeapBytes  uint64  `json:"heap_bytes"`
}

// NetworkInfo is the network portion of an environment snapshot.
type NetworkInfo struct {
	Interface string `json:"interface,omitempty"`
	Type      string `json:"type,omitempty"`
	Online    bool   `json:"online"`
}

// BatteryInfo is reported by clients; servers have no battery probe.
type BatteryInfo struct {
	Level    float64 `json:"level"`
	Charging bool    `json:"charging"`
}

// ScreenInfo is reported by clients.
type ScreenInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EnvironmentSnapshot captures ambient device signals at a point in time.
// Every probe is optional; an unavailable signal is a nil field.
type EnvironmentSnapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Platform  string       `json:"platform,omitempty"`
	OS        string       `json:"os,omitempty"`
	Hostname  string       `json:"hostname,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
	Memory    *MemoryInfo  `json:"memory,omitempty"`
	Network   *NetworkInfo `json:"network,omitempty"`
	Battery   *BatteryInfo `json:"battery,omitempty"`
	Screen    *ScreenInfo  `json:"screen,omitempty"`
}

// Result is a single outcome record of a specific test type.
type Result struct {
	ID          string               `json:"id"`
	SessionID   string               `json:"session_id,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	RelativeMs  int64                `json:"relative_ms"`
	Type        string               `json:"type"`
	Payload     JSONMap              `json:"payload,omitempty"`
	Environment *EnvironmentSnapshot `json:"environment,omitempty"`
}

// Metric is a single numeric performance sample.
type Metric struct {
	ID          string               `json:"id"`
	SessionID   string               `json:"session_id,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	RelativeMs  int64                `json:"relative_ms"`
	Type        string               `json:"type"`
	Value       float64              `json:"value"`
	Context     JSONMap              `json:"context,omitempty"`
	Environment *EnvironmentSnapshot `json:"environment,omitempty"`
}

// Event is a discrete occurrence: user interaction, error, or a synthetic
// alert raised by a threshold check. Synthetic events carry no marker; they
// sit in the session's event sequence like any other.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RelativeMs int64     `json:"relative_ms"`
	Type       string    `json:"type"`
	Payload    JSONMap   `json:"payload,omitempty"`
}

// TestSession is one bounded period of instrumented testing activity.
// EndTime, Duration and Analytics are set exactly once, at close; the
// session is never mutated afterwards.
type TestSession struct {
	ID          string               `json:"id"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     *time.Time           `json:"end_time,omitempty"`
	DurationMs  int64                `json:"duration_ms"`
	Config      JSONMap              `json:"config,omitempty"`
	Environment *EnvironmentSnapshot `json:"environment,omitempty"`
	Results     []*Result            `json:"results"`
	Metrics     []*Metric            `json:"metrics"`
	Events      []*Event             `json:"events"`
	Analytics   *SessionAnalytics    `json:"analytics,omitempty"`
}

// Closed reports whether the session has been finalized.
func (s *TestSession) Closed() bool {
	return s.EndTime != nil
}

// SessionSummary holds record counts for a closed session.
type SessionSummary struct {
	DurationMs   int64 `json:"duration_ms"`
	TotalResults int   `json:"total_results"`
	TotalMetrics int   `json:"total_metrics"`
	TotalEvents  int   `json:"total_events"`
}

// PerformanceAggregate summarizes performance metrics.
type PerformanceAggregate struct {
	AverageScanTime    float64 `json:"averageScanTime"`
	MaxScanTime        float64 `json:"maxScanTime"`
	AverageMemoryUsage float64 `json:"averageMemoryUsage"`
	MaxMemoryUsage     float64 `json:"maxMemoryUsage"`
}

// ScanningAggregate summarizes barcode_scan results. NoData distinguishes
// "no scans attempted" from "0% success".
type ScanningAggregate struct {
	NoData          bool           `json:"noData,omitempty"`
	TotalScans      int            `json:"totalScans"`
	SuccessfulScans int            `json:"successfulScans"`
	FailedScans     int            `json:"failedScans"`
	SuccessRate     float64        `json:"successRate"`
	AverageScanTime float64        `json:"averageScanTime"`
	FailureReasons  map[string]int `json:"failureReasons,omitempty"`
}

// Issue is a problem identified from a session's aggregates.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// SessionAnalytics is the derived, immutable summary of a closed session.
type SessionAnalytics struct {
	Summary            SessionSummary       `json:"summary"`
	Performance        PerformanceAggregate `json:"performance"`
	Scanning           *ScanningAggregate   `json:"scanning"`
	EnvironmentChanges int                  `json:"environmentChanges"`
	Issues             []Issue              `json:"issues"`
	Recommendations    []string             `json:"recommendations"`
}
