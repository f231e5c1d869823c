package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Migrator applies versioned SQL schema migrations from a directory,
// driving golang-migrate through the pgx stdlib adapter so the same
// pool serves both migrations and the application.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	logger zerolog.Logger
}

// NewMigrator builds a Migrator reading migration files from dir.
func NewMigrator(db *DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	switch {
	case db == nil || db.pool == nil:
		return nil, errors.New("migrator: database connection is required")
	case dir == "":
		return nil, errors.New("migrator: migrations directory is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrator: cannot read migrations directory: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrator: postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return &Migrator{m: m, sqlDB: sqlDB, logger: logger}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	mg.logger.Info().Msg("applying pending schema migrations")
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down reverts every applied migration.
func (mg *Migrator) Down() error {
	mg.logger.Warn().Msg("reverting all schema migrations")
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps applies n migrations forward, or reverts -n when n is negative.
func (mg *Migrator) Steps(n int) error {
	mg.logger.Info().Int("steps", n).Msg("applying schema migration steps")
	err := mg.m.Steps(n)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		return nil
	case errors.Is(err, os.ErrNotExist):
		// Asked to step past the newest migration file.
		mg.logger.Info().Msg("already at the newest migration")
		return nil
	default:
		return fmt.Errorf("migrate steps: %w", err)
	}
}

// Version reports the current schema version and whether it is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	return mg.m.Version()
}

// Force overwrites the recorded schema version without running any
// migration. Recovery tool for a dirty version after a failed run.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn().Int("version", version).Msg("forcing schema version")
	return mg.m.Force(version)
}

// Close releases the migration source and the stdlib connection wrapper.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	var sqlErr error
	if mg.sqlDB != nil {
		sqlErr = mg.sqlDB.Close()
	}
	return errors.Join(srcErr, dbErr, sqlErr)
}
