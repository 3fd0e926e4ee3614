package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
)

// ResultRepository implements repositories.ResultRepository
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a new ResultRepository
func NewResultRepository(db *sql.DB) repositories.ResultRepository {
	return &ResultRepository{db: db}
}

// Store upserts a result by id with the session id denormalized onto the
// row for indexed lookup.
func (r *ResultRepository) Store(ctx context.Context, sessionID string, result *models.Result) error {
	query := `
		INSERT INTO results (id, session_id, timestamp, relative_ms, type, payload, environment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			timestamp = excluded.timestamp,
			relative_ms = excluded.relative_ms,
			type = excluded.type,
			payload = excluded.payload,
			environment = excluded.environment
	`

	payloadJSON, err := json.Marshal(result.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	environmentJSON, err := json.Marshal(result.Environment)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		result.ID,
		sessionID,
		result.Timestamp,
		result.RelativeMs,
		result.Type,
		payloadJSON,
		environmentJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	result.SessionID = sessionID
	return nil
}

// GetBySessionID retrieves all results for a session in collection order
func (r *ResultRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Result, error) {
	query := `
		SELECT id, session_id, timestamp, relative_ms, type, payload, environment
		FROM results
		WHERE session_id = ?
		ORDER BY relative_ms ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		var result models.Result
		var payloadJSON, environmentJSON []byte

		err := rows.Scan(
			&result.ID,
			&result.SessionID,
			&result.Timestamp,
			&result.RelativeMs,
			&result.Type,
			&payloadJSON,
			&environmentJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &result.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}
		if len(environmentJSON) > 0 {
			if err := json.Unmarshal(environmentJSON, &result.Environment); err != nil {
				return nil, fmt.Errorf("failed to unmarshal environment: %w", err)
			}
		}

		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result rows: %w", err)
	}

	return results, nil
}
