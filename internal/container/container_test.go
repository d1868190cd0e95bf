package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"memory", func(c *Config) { c.Database.Driver = DriverMemory; c.Database.Path = "" }, ""},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported"},
		{"no attempts", func(c *Config) { c.Workflow.DecideMaxAttempts = 0 }, "decide_max_attempts"},
		{"bad metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"half lark credentials", func(c *Config) { c.Lark.AppID = "cli_x" }, "lark.app_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewContainer_RequiresArguments(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func exerciseClearance(t *testing.T, c *Container) {
	t.Helper()
	ctx := context.Background()
	svc := c.Services().Clearance

	req, err := svc.CreateRequest(ctx, entity.Actor{ID: "s-1", Role: entity.RoleStudent}, entity.Payload{FullName: "Asha"})
	require.NoError(t, err)

	faculty := entity.Actor{ID: "f-1", Role: entity.RoleFaculty}
	updated, err := svc.Decide(ctx, faculty, req.ID, req.Stages[0].ID, workflow.DecisionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusInProgress, updated.Status)

	counts, err := c.Repositories().Request.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.RequestStatusInProgress])
}

func TestContainer_MemoryLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = DriverMemory

	c := startContainer(t, cfg)
	assert.True(t, c.Ready())
	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.Metrics())
	assert.Equal(t, 1, c.Workers().Count())

	exerciseClearance(t, c)

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.Equal(t, "in-memory", health.Components["database"].Message)

	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
}

func TestContainer_SQLiteLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "clearance.db")
	cfg.Metrics.Enabled = false

	c := startContainer(t, cfg)
	assert.Nil(t, c.Metrics())
	assert.Equal(t, 0, c.Workers().Count())

	exerciseClearance(t, c)

	health := c.Health(context.Background())
	assert.True(t, health.Components["database"].Healthy)

	require.NoError(t, c.Close())
}

func TestContainer_StartFailureClosesContainer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Path = t.TempDir()

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, c.Start(context.Background()))
	assert.False(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))
}
