package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/EventIndexor/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	UpSeparator   = "-- +migrate Up"
	DownSeparator = "-- +migrate Down"
	// NoLimitMigrations applies every pending migration.
	NoLimitMigrations = 0

	dialect = "sqlite3"
)

// Migration is one embedded SQL file holding a Down section followed by an Up section.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations opens dbPath and applies every pending migration.
func RunMigrations(dbPath string, migrations []Migration) error {
	db, err := NewSQLiteDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return RunMigrationsDB(logger.GetDefaultLogger(), db, migrations)
}

// RunMigrationsDB applies every pending migration on an open database.
func RunMigrationsDB(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsDBExtended(log, db, migrations, migrate.Up, NoLimitMigrations)
}

// RunMigrationsDBExtended applies at most maxMigrations migrations in the given direction.
// Pass NoLimitMigrations for no limit.
func RunMigrationsDBExtended(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	if maxMigrations != NoLimitMigrations {
		migrate.SetIgnoreUnknown(true)
	}

	source, err := memorySource(migrations)
	if err != nil {
		return err
	}

	ids := migrationIDs(source)
	log.Debugf("running migrations (max %d/%d): %s", maxMigrations, len(ids), strings.Join(ids, ", "))

	n, err := migrate.ExecMax(db, dialect, source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("failed to execute migrations (max %d/%d) %s: %w",
			maxMigrations, len(ids), strings.Join(ids, ", "), err)
	}

	log.Infof("successfully ran %d migrations", n)
	return nil
}

// AppliedMigrations lists the IDs of migrations recorded as applied.
func AppliedMigrations(db *sql.DB) ([]string, error) {
	records, err := migrate.GetMigrationRecords(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration records: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Id)
	}

	return ids, nil
}

func memorySource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}

	for _, m := range migrations {
		parsed, err := parseMigration(m)
		if err != nil {
			return nil, err
		}
		source.Migrations = append(source.Migrations, parsed)
	}

	return source, nil
}

func parseMigration(m Migration) (*migrate.Migration, error) {
	down, up, found := strings.Cut(m.SQL, UpSeparator)
	if !found {
		return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, UpSeparator)
	}

	if _, after, ok := strings.Cut(down, DownSeparator); ok {
		down = after
	}

	return &migrate.Migration{
		Id:   m.ID,
		Up:   []string{strings.TrimSpace(up)},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}

func migrationIDs(source *migrate.MemoryMigrationSource) []string {
	ids := make([]string, 0, len(source.Migrations))
	for _, m := range source.Migrations {
		ids = append(ids, m.Id)
	}
	return ids
}
