package repositories

import (
	"context"
	"time"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// SessionRepository persists session envelopes. Events and analytics live
// embedded in the session row; results and metrics have their own tables
// (see the repository implementations).
type SessionRepository interface {
	// Store upserts a session by id with full-overwrite semantics.
	Store(ctx context.Context, session *models.TestSession) error
	// GetByID returns the session with its indexed records hydrated, or
	// (nil, nil) when no such session exists.
	GetByID(ctx context.Context, id string) (*models.TestSession, error)
	// GetAll returns all stored sessions, hydrated, newest first.
	GetAll(ctx context.Context) ([]*models.TestSession, error)
	// DeleteOlderThan removes closed sessions whose end time predates the
	// cutoff, along with their indexed results and metrics. Returns the
	// number of sessions removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResultRepository persists individual result records, denormalized with
// their session id for indexed lookup.
type ResultRepository interface {
	Store(ctx context.Context, sessionID string, result *models.Result) error
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.Result, error)
}

// MetricRepository persists individual metric samples.
type MetricRepository interface {
	Store(ctx context.Context, sessionID string, metric *models.Metric) error
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.Metric, error)
}
