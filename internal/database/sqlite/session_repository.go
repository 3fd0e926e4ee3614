package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
)

// SessionRepository implements repositories.SessionRepository
type SessionRepository struct {
	db      *sql.DB
	results repositories.ResultRepository
	metrics repositories.MetricRepository
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB, results repositories.ResultRepository, metrics repositories.MetricRepository) repositories.SessionRepository {
	return &SessionRepository{db: db, results: results, metrics: metrics}
}

// Store upserts the session envelope by id. Events and analytics are
// marshaled into the row; results and metrics live in their own tables.
func (r *SessionRepository) Store(ctx context.Context, session *models.TestSession) error {
	query := `
		INSERT INTO sessions (id, start_time, end_time, duration_ms, config, environment, events, analytics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration_ms = excluded.duration_ms,
			config = excluded.config,
			environment = excluded.environment,
			events = excluded.events,
			analytics = excluded.analytics,
			updated_at = CURRENT_TIMESTAMP
	`

	configJSON, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	environmentJSON, err := json.Marshal(session.Environment)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}
	eventsJSON, err := json.Marshal(session.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	analyticsJSON, err := json.Marshal(session.Analytics)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics: %w", err)
	}

	var endTime interface{}
	if session.EndTime != nil {
		endTime = *session.EndTime
	}

	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.StartTime,
		endTime,
		session.DurationMs,
		configJSON,
		environmentJSON,
		eventsJSON,
		analyticsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by id, hydrating its indexed records.
// Returns (nil, nil) when the session does not exist.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	query := `
		SELECT id, start_time, end_time, duration_ms, config, environment, events, analytics
		FROM sessions
		WHERE id = ?
	`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session by ID: %w", err)
	}

	if err := r.hydrate(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// GetAll retrieves all sessions, newest first
func (r *SessionRepository) GetAll(ctx context.Context) ([]*models.TestSession, error) {
	query := `
		SELECT id, start_time, end_time, duration_ms, config, environment, events, analytics
		FROM sessions
		ORDER BY start_time DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.TestSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	for _, session := range sessions {
		if err := r.hydrate(ctx, session); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// DeleteOlderThan removes closed sessions past the cutoff together with
// their indexed results and metrics, in one transaction.
func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin retention transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM results WHERE session_id IN (SELECT id FROM sessions WHERE end_time IS NOT NULL AND end_time < ?)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to delete expired results: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM metrics WHERE session_id IN (SELECT id FROM sessions WHERE end_time IS NOT NULL AND end_time < ?)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to delete expired metrics: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE end_time IS NOT NULL AND end_time < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit retention transaction: %w", err)
	}

	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SessionRepository) scanSession(row rowScanner) (*models.TestSession, error) {
	var session models.TestSession
	var endTime sql.NullTime
	var configJSON, environmentJSON, eventsJSON, analyticsJSON []byte

	err := row.Scan(
		&session.ID,
		&session.StartTime,
		&endTime,
		&session.DurationMs,
		&configJSON,
		&environmentJSON,
		&eventsJSON,
		&analyticsJSON,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		t := endTime.Time
		session.EndTime = &t
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &session.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if len(environmentJSON) > 0 {
		if err := json.Unmarshal(environmentJSON, &session.Environment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal environment: %w", err)
		}
	}
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &session.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}
	if len(analyticsJSON) > 0 {
		if err := json.Unmarshal(analyticsJSON, &session.Analytics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analytics: %w", err)
		}
	}

	return &session, nil
}

func (r *SessionRepository) hydrate(ctx context.Context, session *models.TestSession) error {
	results, err := r.results.GetBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load session results: %w", err)
	}
	session.Results = results

	metrics, err := r.metrics.GetBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load session metrics: %w", err)
	}
	session.Metrics = metrics

	return nil
}
