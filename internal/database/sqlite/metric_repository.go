package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
)

// MetricRepository implements repositories.MetricRepository
type MetricRepository struct {
	db *sql.DB
}

// NewMetricRepository creates a new MetricRepository
func NewMetricRepository(db *sql.DB) repositories.MetricRepository {
	return &MetricRepository{db: db}
}

// Store upserts a metric by id with the session id denormalized onto the row.
func (r *MetricRepository) Store(ctx context.Context, sessionID string, metric *models.Metric) error {
	query := `
		INSERT INTO metrics (id, session_id, timestamp, relative_ms, type, value, context, environment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			timestamp = excluded.timestamp,
			relative_ms = excluded.relative_ms,
			type = excluded.type,
			value = excluded.value,
			context = excluded.context,
			environment = excluded.environment
	`

	contextJSON, err := json.Marshal(metric.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	environmentJSON, err := json.Marshal(metric.Environment)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		metric.ID,
		sessionID,
		metric.Timestamp,
		metric.RelativeMs,
		metric.Type,
		metric.Value,
		contextJSON,
		environmentJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store metric: %w", err)
	}

	metric.SessionID = sessionID
	return nil
}

// GetBySessionID retrieves all metrics for a session in collection order
func (r *MetricRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Metric, error) {
	query := `
		SELECT id, session_id, timestamp, relative_ms, type, value, context, environment
		FROM metrics
		WHERE session_id = ?
		ORDER BY relative_ms ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*models.Metric
	for rows.Next() {
		var metric models.Metric
		var contextJSON, environmentJSON []byte

		err := rows.Scan(
			&metric.ID,
			&metric.SessionID,
			&metric.Timestamp,
			&metric.RelativeMs,
			&metric.Type,
			&metric.Value,
			&contextJSON,
			&environmentJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}

		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &metric.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context: %w", err)
			}
		}
		if len(environmentJSON) > 0 {
			if err := json.Unmarshal(environmentJSON, &metric.Environment); err != nil {
				return nil, fmt.Errorf("failed to unmarshal environment: %w", err)
			}
		}

		metrics = append(metrics, &metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric rows: %w", err)
	}

	return metrics, nil
}
