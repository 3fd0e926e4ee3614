package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Retention RetentionConfig `mapstructure:"retention"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig drives the session manager's inline threshold checks.
type TelemetryConfig struct {
	SlowScanThresholdMs float64            `mapstructure:"slow_scan_threshold_ms"`
	MetricThresholds    map[string]float64 `mapstructure:"metric_thresholds"`
	PersistTimeout      string             `mapstructure:"persist_timeout"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type RetentionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	MaxAge   string `mapstructure:"max_age"`
	Schedule string `mapstructure:"schedule"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()

	// Override specific values from env
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("retention.enabled", "RETENTION_ENABLED")

	// Read config file (optional, defaults cover a full run)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for consistency
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}
	if c.Database.MigrationsPath == "" {
		errors = append(errors, "database.migrations_path is required")
	}
	if c.Telemetry.SlowScanThresholdMs <= 0 {
		errors = append(errors, "telemetry.slow_scan_threshold_ms must be positive")
	}
	if c.Retention.Enabled {
		if _, err := time.ParseDuration(c.Retention.MaxAge); err != nil {
			errors = append(errors, fmt.Sprintf("retention.max_age is not a valid duration: %v", err))
		}
	}
	if _, err := time.ParseDuration(c.Telemetry.PersistTimeout); err != nil {
		errors = append(errors, fmt.Sprintf("telemetry.persist_timeout is not a valid duration: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// PersistTimeoutDuration returns the parsed per-record persistence timeout.
func (c *Config) PersistTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Telemetry.PersistTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// RetentionMaxAge returns the parsed retention window.
func (c *Config) RetentionMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Retention.MaxAge)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.path", "./data/telemetry.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Telemetry defaults. The metric threshold table matches the scanner
	// app's alert rules: MB for memory, ms for timings, %/hour for battery.
	viper.SetDefault("telemetry.slow_scan_threshold_ms", 5000.0)
	viper.SetDefault("telemetry.metric_thresholds", map[string]float64{
		"memory_usage":  100,
		"scan_time":     5000,
		"camera_init":   3000,
		"battery_drain": 20,
	})
	viper.SetDefault("telemetry.persist_timeout", "5s")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Retention defaults
	viper.SetDefault("retention.enabled", true)
	viper.SetDefault("retention.max_age", "720h")
	viper.SetDefault("retention.schedule", "0 3 * * *")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prefix", "scantrace")
	viper.SetDefault("metrics.path", "/metrics")
}
