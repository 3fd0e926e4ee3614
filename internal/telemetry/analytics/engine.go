package analytics

import (
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// Issue types, in evaluation order.
const (
	IssueLowSuccessRate  = "low_success_rate"
	IssueSlowScanning    = "slow_scanning"
	IssueHighMemoryUsage = "high_memory_usage"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

const (
	successRateFloor   = 80.0   // percent
	slowScanAverageMs  = 3000.0 // average scan time ceiling
	memoryUsageCeiling = 100.0  // MB
)

// recommendations is a fixed one-to-one mapping from issue type to
// remediation text. Multiple issues of one type never duplicate an entry.
var recommendations = map[string]string{
	IssueLowSuccessRate:  "Review camera focus and lighting conditions; consider increasing scan timeout",
	IssueSlowScanning:    "Reduce decode resolution or limit enabled barcode formats to speed up scanning",
	IssueHighMemoryUsage: "Release camera and decoder resources between scans to reduce memory pressure",
}

// Analyze computes the derived summary for a session's accumulated records.
// It is a pure function: no side effects, no store access.
func Analyze(session *models.TestSession) *models.SessionAnalytics {
	a := &models.SessionAnalytics{
		Summary: models.SessionSummary{
			DurationMs:   session.DurationMs,
			TotalResults: len(session.Results),
			TotalMetrics: len(session.Metrics),
			TotalEvents:  len(session.Events),
		},
		Performance:        analyzePerformance(session.Metrics),
		Scanning:           analyzeScanning(session.Results),
		EnvironmentChanges: countEnvironmentChanges(session.Events),
		Issues:             []models.Issue{},
		Recommendations:    []string{},
	}

	a.Issues = identifyIssues(a)
	a.Recommendations = recommend(a.Issues)

	return a
}

func analyzePerformance(metrics []*models.Metric) models.PerformanceAggregate {
	var scanTimes, memoryUsages []float64

	for _, m := range metrics {
		switch m.Type {
		case "scan_time":
			scanTimes = append(scanTimes, m.Value)
		case "memory_usage":
			memoryUsages = append(memoryUsages, m.Value)
		case "camera_init":
			// Tracked for threshold alerts only; no aggregate.
		}
	}

	return models.PerformanceAggregate{
		AverageScanTime:    mean(scanTimes),
		MaxScanTime:        maxOf(scanTimes),
		AverageMemoryUsage: mean(memoryUsages),
		MaxMemoryUsage:     maxOf(memoryUsages),
	}
}

func analyzeScanning(results []*models.Result) *models.ScanningAggregate {
	var scans []*models.Result
	for _, r := range results {
		if r.Type == "barcode_scan" {
			scans = append(scans, r)
		}
	}

	if len(scans) == 0 {
		return &models.ScanningAggregate{NoData: true}
	}

	agg := &models.ScanningAggregate{
		TotalScans:     len(scans),
		FailureReasons: make(map[string]int),
	}

	var totalScanTime float64
	for _, scan := range scans {
		// A missing or non-boolean success field counts as a failure.
		if success, _ := scan.Payload.Bool("success"); success {
			agg.SuccessfulScans++
		} else {
			agg.FailedScans++
			reason, hasReason := scan.Payload.String("error")
			if !hasReason || reason == "" {
				reason = "Unknown"
			}
			agg.FailureReasons[reason]++
		}

		// Missing scanTime counts as 0 toward the average.
		t, _ := scan.Payload.Float("scanTime")
		totalScanTime += t
	}

	agg.SuccessRate = float64(agg.SuccessfulScans) / float64(agg.TotalScans) * 100
	agg.AverageScanTime = totalScanTime / float64(agg.TotalScans)

	return agg
}

// identifyIssues evaluates issue rules in fixed order; each rule triggers
// independently.
func identifyIssues(a *models.SessionAnalytics) []models.Issue {
	issues := []models.Issue{}

	if a.Scanning != nil && !a.Scanning.NoData && a.Scanning.SuccessRate < successRateFloor {
		issues = append(issues, models.Issue{
			Type:        IssueLowSuccessRate,
			Severity:    SeverityHigh,
			Description: "Barcode scan success rate is below 80%",
		})
	}

	if a.Scanning != nil && !a.Scanning.NoData && a.Scanning.AverageScanTime > slowScanAverageMs {
		issues = append(issues, models.Issue{
			Type:        IssueSlowScanning,
			Severity:    SeverityMedium,
			Description: "Average scan time exceeds 3 seconds",
		})
	}

	if a.Performance.MaxMemoryUsage > memoryUsageCeiling {
		issues = append(issues, models.Issue{
			Type:        IssueHighMemoryUsage,
			Severity:    SeverityMedium,
			Description: "Peak memory usage exceeds 100 MB",
		})
	}

	return issues
}

func recommend(issues []models.Issue) []string {
	recs := []string{}
	seen := make(map[string]bool)
	for _, issue := range issues {
		rec, ok := recommendations[issue.Type]
		if !ok || seen[issue.Type] {
			continue
		}
		seen[issue.Type] = true
		recs = append(recs, rec)
	}
	return recs
}

func countEnvironmentChanges(events []*models.Event) int {
	count := 0
	for _, e := range events {
		if e.Type == "network_change" || e.Type == "performance_alert" {
			count++
		}
	}
	return count
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
