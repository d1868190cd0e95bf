package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Certificate CertificateConfig `mapstructure:"certificate"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// WorkflowConfig holds decision processing configuration
type WorkflowConfig struct {
	DecideMaxAttempts int           `mapstructure:"decide_max_attempts"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LarkConfig holds Lark notification configuration
type LarkConfig struct {
	AppID           string            `mapstructure:"app_id"`
	AppSecret       string            `mapstructure:"app_secret"`
	BaseURL         string            `mapstructure:"base_url"`
	DepartmentChats map[string]string `mapstructure:"department_chats"`
	RegistrarChatID string            `mapstructure:"registrar_chat_id"`
}

// CertificateConfig holds certificate configuration
type CertificateConfig struct {
	InstitutionName string `mapstructure:"institution_name"`
}

// Load reads configPath, overlays environment variables and validates the
// result. A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/clearance.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("workflow.decide_max_attempts", 3)
	v.SetDefault("workflow.handler_timeout", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.refresh_interval", 30*time.Second)

	v.SetDefault("certificate.institution_name", "No Dues Clearance")
}

// bindEnvVars binds secrets and deployment-specific values to environment variables
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.driver":        "DATABASE_DRIVER",
		"database.path":          "DATABASE_PATH",
		"database.dsn":           "DATABASE_DSN",
		"server.port":            "PORT",
		"logger.level":           "LOG_LEVEL",
		"lark.app_id":            "LARK_APP_ID",
		"lark.app_secret":        "LARK_APP_SECRET",
		"lark.base_url":          "LARK_BASE_URL",
		"lark.registrar_chat_id": "LARK_REGISTRAR_CHAT_ID",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or memory, got %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Workflow.DecideMaxAttempts < 1 {
		return fmt.Errorf("workflow.decide_max_attempts must be at least 1")
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
