package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

func scanResult(success bool, scanTime float64, errMsg string) *models.Result {
	payload := models.JSONMap{"success": success}
	if scanTime >= 0 {
		payload["scanTime"] = scanTime
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	return &models.Result{
		ID:        models.NewID("result"),
		Timestamp: time.Now(),
		Type:      "barcode_scan",
		Payload:   payload,
	}
}

func metric(metricType string, value float64) *models.Metric {
	return &models.Metric{
		ID:        models.NewID("metric"),
		Timestamp: time.Now(),
		Type:      metricType,
		Value:     value,
	}
}

func closedSession() *models.TestSession {
	end := time.Now()
	return &models.TestSession{
		ID:         models.NewID("session"),
		StartTime:  end.Add(-time.Minute),
		EndTime:    &end,
		DurationMs: 60000,
		Results:    []*models.Result{},
		Metrics:    []*models.Metric{},
		Events:     []*models.Event{},
	}
}

func TestAnalyzeEmptySession(t *testing.T) {
	a := Analyze(closedSession())
	require.NotNil(t, a)

	assert.Equal(t, 0, a.Summary.TotalResults)
	assert.Equal(t, 0, a.Summary.TotalMetrics)
	assert.Equal(t, int64(60000), a.Summary.DurationMs)

	// Empty metric streams aggregate to zero, not NaN.
	assert.Equal(t, 0.0, a.Performance.AverageScanTime)
	assert.Equal(t, 0.0, a.Performance.MaxScanTime)
	assert.Equal(t, 0.0, a.Performance.AverageMemoryUsage)
	assert.Equal(t, 0.0, a.Performance.MaxMemoryUsage)

	require.NotNil(t, a.Scanning)
	assert.True(t, a.Scanning.NoData)

	assert.Empty(t, a.Issues)
	assert.Empty(t, a.Recommendations)
}

func TestAnalyzeScanningAggregate(t *testing.T) {
	session := closedSession()
	session.Results = []*models.Result{
		scanResult(true, 1000, ""),
		scanResult(true, 2000, ""),
		scanResult(false, 9000, "timeout"),
	}

	a := Analyze(session)
	require.NotNil(t, a.Scanning)

	assert.False(t, a.Scanning.NoData)
	assert.Equal(t, 3, a.Scanning.TotalScans)
	assert.Equal(t, 2, a.Scanning.SuccessfulScans)
	assert.Equal(t, 1, a.Scanning.FailedScans)
	assert.InDelta(t, 66.7, a.Scanning.SuccessRate, 0.1)
	assert.InDelta(t, 4000, a.Scanning.AverageScanTime, 0.001)
	assert.Equal(t, map[string]int{"timeout": 1}, a.Scanning.FailureReasons)

	// 66.7% < 80% and 4000ms > 3000ms raise both scanning issues, in order.
	require.Len(t, a.Issues, 2)
	assert.Equal(t, IssueLowSuccessRate, a.Issues[0].Type)
	assert.Equal(t, SeverityHigh, a.Issues[0].Severity)
	assert.Equal(t, IssueSlowScanning, a.Issues[1].Type)
	assert.Equal(t, SeverityMedium, a.Issues[1].Severity)
	assert.Len(t, a.Recommendations, 2)
}

func TestAnalyzeMissingScanTimeCountsAsZero(t *testing.T) {
	session := closedSession()
	session.Results = []*models.Result{
		scanResult(true, 4000, ""),
		scanResult(true, -1, ""), // no scanTime field
	}

	a := Analyze(session)
	require.NotNil(t, a.Scanning)
	assert.InDelta(t, 2000, a.Scanning.AverageScanTime, 0.001)
}

func TestAnalyzeFailureReasonDefaultsUnknown(t *testing.T) {
	session := closedSession()
	session.Results = []*models.Result{
		scanResult(false, 500, ""),
		scanResult(false, 500, ""),
		scanResult(false, 500, "no camera"),
	}

	a := Analyze(session)
	require.NotNil(t, a.Scanning)
	assert.Equal(t, map[string]int{"Unknown": 2, "no camera": 1}, a.Scanning.FailureReasons)
	assert.Equal(t, 0.0, a.Scanning.SuccessRate)
}

func TestAnalyzeZeroSuccessRateIsNotNoData(t *testing.T) {
	session := closedSession()
	session.Results = []*models.Result{scanResult(false, 100, "blur")}

	a := Analyze(session)
	require.NotNil(t, a.Scanning)
	assert.False(t, a.Scanning.NoData)
	assert.Equal(t, 0.0, a.Scanning.SuccessRate)
}

func TestAnalyzePerformanceAggregate(t *testing.T) {
	session := closedSession()
	session.Metrics = []*models.Metric{
		metric("scan_time", 1000),
		metric("scan_time", 3000),
		metric("memory_usage", 80),
		metric("memory_usage", 120),
		metric("camera_init", 2500), // not aggregated
	}

	a := Analyze(session)
	assert.InDelta(t, 2000, a.Performance.AverageScanTime, 0.001)
	assert.Equal(t, 3000.0, a.Performance.MaxScanTime)
	assert.InDelta(t, 100, a.Performance.AverageMemoryUsage, 0.001)
	assert.Equal(t, 120.0, a.Performance.MaxMemoryUsage)

	// Peak memory above 100 MB raises the memory issue even with no scans.
	require.Len(t, a.Issues, 1)
	assert.Equal(t, IssueHighMemoryUsage, a.Issues[0].Type)
	assert.Equal(t, SeverityMedium, a.Issues[0].Severity)
}

func TestAnalyzeEnvironmentChanges(t *testing.T) {
	session := closedSession()
	session.Events = []*models.Event{
		{Type: "network_change"},
		{Type: "performance_alert"},
		{Type: "user_interaction"},
		{Type: "network_change"},
	}

	a := Analyze(session)
	assert.Equal(t, 3, a.EnvironmentChanges)
	assert.Equal(t, 4, a.Summary.TotalEvents)
}

func TestRecommendationsDeduplicated(t *testing.T) {
	issues := []models.Issue{
		{Type: IssueLowSuccessRate},
		{Type: IssueLowSuccessRate},
		{Type: IssueSlowScanning},
	}

	recs := recommend(issues)
	assert.Len(t, recs, 2)
}

func TestAnalyzeIsPure(t *testing.T) {
	session := closedSession()
	session.Results = []*models.Result{scanResult(true, 1000, "")}

	before := len(session.Results)
	_ = Analyze(session)
	_ = Analyze(session)

	assert.Len(t, session.Results, before)
	assert.Nil(t, session.Analytics)
}
