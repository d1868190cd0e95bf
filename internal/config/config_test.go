package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/clearance.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Workflow.DecideMaxAttempts)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Metrics.RefreshInterval)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://localhost/clearance
workflow:
  decide_max_attempts: 5
lark:
  department_chats:
    Library: oc_library
    Accounts Office: oc_accounts
certificate:
  institution_name: Government Engineering College
`)
	t.Setenv("LARK_APP_ID", "cli_env")
	t.Setenv("LARK_APP_SECRET", "secret_env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Workflow.DecideMaxAttempts)
	assert.Equal(t, "cli_env", cfg.Lark.AppID)
	assert.Equal(t, "secret_env", cfg.Lark.AppSecret)
	assert.Len(t, cfg.Lark.DepartmentChats, 2)
	assert.Equal(t, "Government Engineering College", cfg.Certificate.InstitutionName)

	cc := cfg.ToContainerConfig()
	assert.NoError(t, cc.Validate())
	assert.Equal(t, "postgres://localhost/clearance", cc.Database.DSN)
	assert.Equal(t, "cli_env", cc.Lark.AppID)
	assert.Len(t, cc.Lark.DepartmentChats, 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown driver", "database:\n  driver: mysql\n", "database.driver"},
		{"postgres without dsn", "database:\n  driver: postgres\n", "database.dsn"},
		{"zero attempts", "workflow:\n  decide_max_attempts: 0\n", "decide_max_attempts"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
