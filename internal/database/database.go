package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/config"
	pkgerrors "github.com/nutrifit-ops/scan-telemetry-go/pkg/errors"
)

// Initialize creates and configures the database connection. Any failure
// here is fatal to the telemetry subsystem and surfaces as an
// InitializationError.
func Initialize(cfg config.DatabaseConfig) (*sql.DB, error) {
	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, pkgerrors.NewInitializationError(fmt.Errorf("failed to create database directory: %w", err))
	}

	// Open database connection
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, pkgerrors.NewInitializationError(fmt.Errorf("failed to open database: %w", err))
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute * 30)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, pkgerrors.NewInitializationError(fmt.Errorf("failed to ping database: %w", err))
	}

	// Apply SQLite optimizations
	if err := applySQLiteOptimizations(db); err != nil {
		return nil, pkgerrors.NewInitializationError(err)
	}

	return db, nil
}

// applySQLiteOptimizations applies SQLite-specific performance settings
func applySQLiteOptimizations(db *sql.DB) error {
	optimizations := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range optimizations {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Migrate runs database migrations
func Migrate(db *sql.DB, migrationsPath string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return pkgerrors.NewInitializationError(fmt.Errorf("failed to create migration driver: %w", err))
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return pkgerrors.NewInitializationError(fmt.Errorf("failed to create migration instance: %w", err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return pkgerrors.NewInitializationError(fmt.Errorf("failed to run migrations: %w", err))
	}

	return nil
}
