package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "oracle"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNew_RequiresConnectionTarget(t *testing.T) {
	_, err := New(Config{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(Config{Driver: "postgres"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadMigrations_EmbeddedForEveryDriver(t *testing.T) {
	for _, driver := range []string{DriverSQLite, DriverPostgres} {
		migrations, err := loadMigrations(migrationFiles, "migrations/"+driver)
		require.NoError(t, err, driver)
		require.NotEmpty(t, migrations, driver)
		assert.Equal(t, 1, migrations[0].Version)
		assert.Equal(t, "init", migrations[0].Name)
		assert.Contains(t, migrations[0].SQL, "uq_requests_open_owner")
	}
}

func TestMigrator_SQLiteIsIdempotent(t *testing.T) {
	db, err := New(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	migrator := NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.Run())
	require.NoError(t, migrator.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(1) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	for _, table := range []string{"requests", "stages", "request_history"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}
