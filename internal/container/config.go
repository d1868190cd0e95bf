// Package container provides dependency injection and lifecycle management
// for the clearance service.
package container

import (
	"fmt"
	"strings"
	"time"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the Container.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Workflow    WorkflowConfig
	Metrics     MetricsConfig
	Lark        LarkConfig
	Certificate CertificateConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite, postgres or memory
	Driver string

	// Path to the SQLite database file
	Path string

	// DSN is the PostgreSQL connection string
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// WorkflowConfig holds decision processing settings.
type WorkflowConfig struct {
	// DecideMaxAttempts bounds retries after a lost optimistic version check
	DecideMaxAttempts int

	// HandlerTimeout bounds each asynchronous event handler
	HandlerTimeout time.Duration
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
	Path    string

	// RefreshInterval is how often the per-status request gauge is recomputed
	RefreshInterval time.Duration
}

// LarkConfig holds Lark notification settings. Notifications are only logged
// when AppID or AppSecret is empty.
type LarkConfig struct {
	AppID           string
	AppSecret       string
	BaseURL         string
	DepartmentChats map[string]string
	RegistrarChatID string
}

// CertificateConfig holds certificate rendering settings.
type CertificateConfig struct {
	InstitutionName string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/clearance.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			DecideMaxAttempts: 3,
			HandlerTimeout:    30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			Path:            "/metrics",
			RefreshInterval: 30 * time.Second,
		},
		Certificate: CertificateConfig{
			InstitutionName: "No Dues Clearance",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if c.Workflow.DecideMaxAttempts < 1 {
		return fmt.Errorf("workflow.decide_max_attempts must be at least 1")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
