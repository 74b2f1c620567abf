package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/EventIndexor/internal/db"
	"github.com/goran-ethernal/EventIndexor/internal/logger"
)

//go:embed 001_indexer_state.sql
var mig001 string

//go:embed 002_block_records.sql
var mig002 string

// All returns the state store migrations in order.
func All() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_indexer_state.sql",
			SQL: mig001,
		},
		{
			ID:  "002_block_records.sql",
			SQL: mig002,
		},
	}
}

// RunMigrations opens the database at dbPath and applies every pending migration.
func RunMigrations(dbPath string) error {
	return db.RunMigrations(dbPath, All())
}

// RunMigrationsDB applies every pending migration on an open database.
func RunMigrationsDB(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrationsDB(log, sqlDB, All())
}
