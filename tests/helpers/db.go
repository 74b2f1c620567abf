package helpers

import (
	"database/sql"
	"path"
	"testing"

	"github.com/goran-ethernal/EventIndexor/internal/db"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
	"github.com/goran-ethernal/EventIndexor/internal/migrations"
	"github.com/goran-ethernal/EventIndexor/internal/store"
	"github.com/goran-ethernal/EventIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated temporary SQLite database.
func NewTestDB(t *testing.T, dbName string) *sql.DB {
	t.Helper()

	dbConfig := config.DatabaseConfig{Path: path.Join(t.TempDir(), dbName)}
	dbConfig.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), database))

	return database
}

// NewTestStore creates a state store over a fresh temporary database.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	return store.New(NewTestDB(t, "state.sqlite"), logger.NewNopLogger(), nil)
}
