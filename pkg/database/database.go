package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database configuration
type Config struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB with the driver it was opened with
type DB struct {
	*sql.DB
	driver string
	logger *zap.Logger
}

// New opens and pings a database connection for the configured driver
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	driverName, dsn, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		driver: normalizeDriver(cfg.Driver),
		logger: logger,
	}

	logger.Info("Database connection established",
		zap.String("driver", db.driver),
		zap.String("path", cfg.Path))
	return db, nil
}

// Driver returns the normalized driver name (sqlite or postgres)
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

func resolve(cfg Config) (driverName, dsn string, err error) {
	switch normalizeDriver(cfg.Driver) {
	case DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("database path is required for sqlite")
		}
		// _txlock=immediate takes the write lock at BEGIN so concurrent
		// decisions queue up instead of failing with SQLITE_BUSY on upgrade
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", cfg.Path)
		return "sqlite3", dsn, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", "", fmt.Errorf("database dsn is required for postgres")
		}
		return "pgx", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func normalizeDriver(driver string) string {
	switch driver {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return driver
	}
}
