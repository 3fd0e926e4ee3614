package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/config"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/telemetry/analytics"
	pkgerrors "github.com/nutrifit-ops/scan-telemetry-go/pkg/errors"
)

// EnvironmentCapturer reads ambient device signals.
type EnvironmentCapturer interface {
	Snapshot(ctx context.Context) *models.EnvironmentSnapshot
	Lightweight(ctx context.Context) *models.EnvironmentSnapshot
}

// AlertSink receives synthetic alert events as they are raised.
type AlertSink interface {
	BroadcastAlert(event *models.Event)
}

// Recorder counts collection activity for operational metrics.
type Recorder interface {
	RecordCollected(kind string)
	RecordAlert(alertType string)
	RecordSessionStarted()
	RecordSessionEnded(duration time.Duration)
	RecordWriteFailure(table string)
}

// Manager owns the lifecycle of the single open test session: start,
// ongoing appends of results/metrics/events, inline threshold checks, end.
// It is the exclusive owner of the open session's state; all access is
// serialized through its mutex. Collection paths never return errors to
// the instrumentation call site.
type Manager struct {
	sessions repositories.SessionRepository
	results  repositories.ResultRepository
	metrics  repositories.MetricRepository

	env      EnvironmentCapturer
	alerts   AlertSink
	recorder Recorder
	logger   *logrus.Logger

	slowScanThresholdMs float64
	metricThresholds    map[string]float64
	persistTimeout      time.Duration

	mu         sync.Mutex
	current    *models.TestSession
	collecting bool
}

// Options carries the manager's collaborators. Alerts and Recorder may be
// nil.
type Options struct {
	Sessions  repositories.SessionRepository
	Results   repositories.ResultRepository
	Metrics   repositories.MetricRepository
	Env       EnvironmentCapturer
	Alerts    AlertSink
	Recorder  Recorder
	Logger    *logrus.Logger
	Telemetry config.TelemetryConfig
}

// NewManager creates a session manager from its collaborators.
func NewManager(opts Options) *Manager {
	persistTimeout := 5 * time.Second
	if d, err := time.ParseDuration(opts.Telemetry.PersistTimeout); err == nil && d > 0 {
		persistTimeout = d
	}

	slowScan := opts.Telemetry.SlowScanThresholdMs
	if slowScan <= 0 {
		slowScan = 5000
	}

	return &Manager{
		sessions:            opts.Sessions,
		results:             opts.Results,
		metrics:             opts.Metrics,
		env:                 opts.Env,
		alerts:              opts.Alerts,
		recorder:            opts.Recorder,
		logger:              opts.Logger,
		slowScanThresholdMs: slowScan,
		metricThresholds:    opts.Telemetry.MetricThresholds,
		persistTimeout:      persistTimeout,
	}
}

// StartSession opens a new test session. It fails with
// ErrSessionAlreadyActive when a session is already collecting; callers
// must end the open session first.
func (m *Manager) StartSession(ctx context.Context, cfg models.JSONMap) (string, error) {
	snapshot := m.env.Snapshot(ctx)
	mergeClientEnvironment(snapshot, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collecting {
		return "", pkgerrors.ErrSessionAlreadyActive
	}

	session := &models.TestSession{
		ID:          models.NewID("session"),
		StartTime:   time.Now(),
		Config:      cfg,
		Environment: snapshot,
		Results:     []*models.Result{},
		Metrics:     []*models.Metric{},
		Events:      []*models.Event{},
	}

	m.current = session
	m.collecting = true

	if m.recorder != nil {
		m.recorder.RecordSessionStarted()
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"platform":   snapshot.Platform,
	}).Info("Test session started")

	return session.ID, nil
}

// CollectResult appends a result to the open session and runs the inline
// threshold pass. A logged warning no-op when no session is collecting.
func (m *Manager) CollectResult(ctx context.Context, resultType string, payload models.JSONMap) {
	env := m.env.Lightweight(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.collecting {
		m.logger.WithField("type", resultType).Warn("Result dropped: no active session")
		return
	}

	now := time.Now()
	result := &models.Result{
		ID:          models.NewID("result"),
		Timestamp:   now,
		RelativeMs:  now.Sub(m.current.StartTime).Milliseconds(),
		Type:        resultType,
		Payload:     payload,
		Environment: env,
	}

	m.current.Results = append(m.current.Results, result)
	m.persistResult(m.current.ID, result)
	m.checkResultThresholds(result)

	if m.recorder != nil {
		m.recorder.RecordCollected("result")
	}
}

// CollectMetric appends a numeric sample to the open session and runs the
// inline threshold pass. A logged warning no-op when no session is
// collecting.
func (m *Manager) CollectMetric(ctx context.Context, metricType string, value float64, metricContext models.JSONMap) {
	env := m.env.Lightweight(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.collecting {
		m.logger.WithField("type", metricType).Warn("Metric dropped: no active session")
		return
	}

	now := time.Now()
	metric := &models.Metric{
		ID:          models.NewID("metric"),
		Timestamp:   now,
		RelativeMs:  now.Sub(m.current.StartTime).Milliseconds(),
		Type:        metricType,
		Value:       value,
		Context:     metricContext,
		Environment: env,
	}

	m.current.Metrics = append(m.current.Metrics, metric)
	m.persistMetric(m.current.ID, metric)
	m.checkMetricThresholds(metric)

	if m.recorder != nil {
		m.recorder.RecordCollected("metric")
	}
}

// CollectEvent appends an event to the open session. A logged warning
// no-op when no session is collecting.
func (m *Manager) CollectEvent(ctx context.Context, eventType string, payload models.JSONMap) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.collecting {
		m.logger.WithField("type", eventType).Warn("Event dropped: no active session")
		return
	}

	m.appendEvent(eventType, payload)

	if m.recorder != nil {
		m.recorder.RecordCollected("event")
	}
}

// EndSession finalizes the open session: end time and duration are set
// exactly once, analytics are computed and attached, and the full envelope
// is persisted. Returns (nil, nil) with a logged warning when no session is
// open. A persistence failure after one retry is returned as a
// PersistenceError; the finalized session is returned alongside it.
func (m *Manager) EndSession(ctx context.Context) (*models.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.collecting {
		m.logger.Warn("EndSession called with no active session")
		return nil, nil
	}

	session := m.current
	now := time.Now()
	session.EndTime = &now
	session.DurationMs = now.Sub(session.StartTime).Milliseconds()
	session.Analytics = analytics.Analyze(session)

	m.current = nil
	m.collecting = false

	if m.recorder != nil {
		m.recorder.RecordSessionEnded(time.Duration(session.DurationMs) * time.Millisecond)
	}

	m.logger.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"duration_ms": session.DurationMs,
		"results":     len(session.Results),
		"metrics":     len(session.Metrics),
		"events":      len(session.Events),
	}).Info("Test session ended")

	if err := m.persistSession(session); err != nil {
		return session, err
	}

	return session, nil
}

// Active reports whether a session is currently collecting.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collecting
}

// CurrentSessionID returns the open session's id, or "" when none is open.
func (m *Manager) CurrentSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ID
}

// appendEvent creates an event with fresh id and timestamps and appends it
// to the open session. Caller must hold the mutex.
func (m *Manager) appendEvent(eventType string, payload models.JSONMap) *models.Event {
	now := time.Now()
	event := &models.Event{
		ID:         models.NewID("event"),
		Timestamp:  now,
		RelativeMs: now.Sub(m.current.StartTime).Milliseconds(),
		Type:       eventType,
		Payload:    payload,
	}
	m.current.Events = append(m.current.Events, event)
	return event
}

// withPersistTimeout runs one store attempt under its own deadline, so a
// retry after a timed-out first attempt starts with a fresh budget.
func (m *Manager) withPersistTimeout(store func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.persistTimeout)
	defer cancel()
	return store(ctx)
}

// persistResult writes through to the store with one retry. Failures are
// logged as PersistenceErrors and never abort the in-memory session.
func (m *Manager) persistResult(sessionID string, result *models.Result) {
	store := func(ctx context.Context) error {
		return m.results.Store(ctx, sessionID, result)
	}

	err := m.withPersistTimeout(store)
	if err != nil {
		err = m.withPersistTimeout(store)
	}
	if err != nil {
		m.logger.WithError(pkgerrors.NewPersistenceError("results.store", err)).
			WithField("result_id", result.ID).
			Error("Result write failed after retry; in-memory state retained")
		if m.recorder != nil {
			m.recorder.RecordWriteFailure("results")
		}
	}
}

// persistMetric writes through to the store with one retry.
func (m *Manager) persistMetric(sessionID string, metric *models.Metric) {
	store := func(ctx context.Context) error {
		return m.metrics.Store(ctx, sessionID, metric)
	}

	err := m.withPersistTimeout(store)
	if err != nil {
		err = m.withPersistTimeout(store)
	}
	if err != nil {
		m.logger.WithError(pkgerrors.NewPersistenceError("metrics.store", err)).
			WithField("metric_id", metric.ID).
			Error("Metric write failed after retry; in-memory state retained")
		if m.recorder != nil {
			m.recorder.RecordWriteFailure("metrics")
		}
	}
}

// persistSession stores the full session envelope with one retry.
func (m *Manager) persistSession(session *models.TestSession) error {
	store := func(ctx context.Context) error {
		return m.sessions.Store(ctx, session)
	}

	err := m.withPersistTimeout(store)
	if err != nil {
		err = m.withPersistTimeout(store)
	}
	if err != nil {
		perr := pkgerrors.NewPersistenceError("sessions.store", err)
		m.logger.WithError(perr).WithField("session_id", session.ID).
			Error("Session write failed after retry")
		if m.recorder != nil {
			m.recorder.RecordWriteFailure("sessions")
		}
		return perr
	}
	return nil
}

// mergeClientEnvironment overlays client-reported signals from the session
// config onto the server-side snapshot. Absent signals leave fields as-is.
func mergeClientEnvironment(snapshot *models.EnvironmentSnapshot, cfg models.JSONMap) {
	if snapshot == nil || cfg == nil {
		return
	}
	if ua, ok := cfg.String("user_agent"); ok {
		snapshot.UserAgent = ua
	}
	if platform, ok := cfg.String("platform"); ok {
		snapshot.Platform = platform
	}
	if screen, ok := cfg["screen"].(map[string]interface{}); ok {
		info := &models.ScreenInfo{}
		if w, ok := models.JSONMap(screen).Float("width"); ok {
			info.Width = int(w)
		}
		if h, ok := models.JSONMap(screen).Float("height"); ok {
			info.Height = int(h)
		}
		snapshot.Screen = info
	}
	if battery, ok := cfg["battery"].(map[string]interface{}); ok {
		info := &models.BatteryInfo{}
		if level, ok := models.JSONMap(battery).Float("level"); ok {
			info.Level = level
		}
		if charging, ok := models.JSONMap(battery).Bool("charging"); ok {
			info.Charging = charging
		}
		snapshot.Battery = info
	}
}
