package database

import (
	"database/sql"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/repositories"
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/sqlite"
)

// Repositories holds all repository instances
type Repositories struct {
	Session repositories.SessionRepository
	Result  repositories.ResultRepository
	Metric  repositories.MetricRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *sql.DB) *Repositories {
	results := sqlite.NewResultRepository(db)
	metrics := sqlite.NewMetricRepository(db)

	return &Repositories{
		Session: sqlite.NewSessionRepository(db, results, metrics),
		Result:  results,
		Metric:  metrics,
	}
}
