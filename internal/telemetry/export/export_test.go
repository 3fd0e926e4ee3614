package export

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

type stubSessionRepo struct {
	sessions []*models.TestSession
}

func (s *stubSessionRepo) Store(ctx context.Context, session *models.TestSession) error {
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *stubSessionRepo) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	for _, session := range s.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, nil
}

func (s *stubSessionRepo) GetAll(ctx context.Context) ([]*models.TestSession, error) {
	return s.sessions, nil
}

func (s *stubSessionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func testSession(id string) *models.TestSession {
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	return &models.TestSession{
		ID:         id,
		StartTime:  start,
		EndTime:    &end,
		DurationMs: 90000,
		Environment: &models.EnvironmentSnapshot{
			Platform:  "Android",
			UserAgent: "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile Safari/537.36",
		},
		Analytics: &models.SessionAnalytics{
			Scanning: &models.ScanningAggregate{
				TotalScans:      4,
				SuccessfulScans: 3,
				SuccessRate:     75,
				AverageScanTime: 1250.5,
			},
		},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestExportJSON(t *testing.T) {
	repo := &stubSessionRepo{sessions: []*models.TestSession{testSession("session_1")}}
	exporter := NewExporter(repo, quietLogger())

	data, err := exporter.ExportData(context.Background(), "", FormatJSON)
	require.NoError(t, err)

	text, ok := data.(string)
	require.True(t, ok)

	var bundle Bundle
	require.NoError(t, json.Unmarshal([]byte(text), &bundle))
	require.Len(t, bundle.Sessions, 1)
	assert.Equal(t, "session_1", bundle.Sessions[0].ID)
	assert.False(t, bundle.ExportedAt.IsZero())
}

func TestExportCSV(t *testing.T) {
	repo := &stubSessionRepo{sessions: []*models.TestSession{testSession("session_1")}}
	exporter := NewExporter(repo, quietLogger())

	data, err := exporter.ExportData(context.Background(), "", FormatCSV)
	require.NoError(t, err)

	text, ok := data.(string)
	require.True(t, ok)

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "session_id,start_time,duration_ms,success_rate,avg_scan_time,platform,browser", lines[0])

	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 7)
	assert.Equal(t, "session_1", fields[0])
	assert.Equal(t, "2026-03-14T10:30:00Z", fields[1])
	assert.Equal(t, "90000", fields[2])
	assert.Equal(t, "75.0", fields[3])
	assert.Equal(t, "1250.5", fields[4])
	assert.Equal(t, "Android", fields[5])
	assert.Equal(t, "Chrome", fields[6])
}

func TestExportCSVNoAnalytics(t *testing.T) {
	session := testSession("session_1")
	session.Analytics = nil
	repo := &stubSessionRepo{sessions: []*models.TestSession{session}}
	exporter := NewExporter(repo, quietLogger())

	data, err := exporter.ExportData(context.Background(), "", FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(data.(string), "\n"), "\n")
	require.Len(t, lines, 2)

	// Success rate and scan time columns stay empty without analytics.
	fields := strings.Split(lines[1], ",")
	assert.Equal(t, "", fields[3])
	assert.Equal(t, "", fields[4])
}

func TestExportSingleSession(t *testing.T) {
	repo := &stubSessionRepo{sessions: []*models.TestSession{
		testSession("session_1"),
		testSession("session_2"),
	}}
	exporter := NewExporter(repo, quietLogger())

	data, err := exporter.ExportData(context.Background(), "session_2", "raw")
	require.NoError(t, err)

	bundle, ok := data.(*Bundle)
	require.True(t, ok)
	require.Len(t, bundle.Sessions, 1)
	assert.Equal(t, "session_2", bundle.Sessions[0].ID)
}

func TestExportUnknownSession(t *testing.T) {
	exporter := NewExporter(&stubSessionRepo{}, quietLogger())

	_, err := exporter.ExportData(context.Background(), "missing", FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExportUnknownFormatReturnsBundle(t *testing.T) {
	repo := &stubSessionRepo{sessions: []*models.TestSession{testSession("session_1")}}
	exporter := NewExporter(repo, quietLogger())

	data, err := exporter.ExportData(context.Background(), "", "xml")
	require.NoError(t, err)

	_, ok := data.(*Bundle)
	assert.True(t, ok)
}

func TestDetectBrowser(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{
			name:      "Chrome on Android",
			userAgent: "Mozilla/5.0 (Linux; Android 14) Chrome/120.0 Mobile Safari/537.36",
			expected:  "Chrome",
		},
		{
			name:      "Safari on iOS",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1",
			expected:  "Safari",
		},
		{
			name:      "Firefox",
			userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
			expected:  "Firefox",
		},
		{
			name:      "Edge without chrome token",
			userAgent: "Mozilla/5.0 Edge/18.19041",
			expected:  "Edge",
		},
		{
			name:      "empty",
			userAgent: "",
			expected:  "Unknown",
		},
		{
			name:      "unrecognized",
			userAgent: "curl/8.4.0",
			expected:  "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectBrowser(tt.userAgent))
		})
	}
}
