package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultDatabaseName = "defiwatch"

// Migrator applies the embedded schema: alert_state and cache_entries.
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// OpenMigrator opens its own database/sql handle for dsn. Close releases
// it together with the migrator.
func OpenMigrator(ctx context.Context, dsn string) (*Migrator, error) {
	db, err := OpenSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}

	m, err := NewMigrator(db, DatabaseName(dsn))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	m.db = db

	return m, nil
}

// MigrateUp applies every pending migration on dsn.
func MigrateUp(ctx context.Context, dsn string) error {
	m, err := OpenMigrator(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return m.Up()
}

// DatabaseName extracts the database name from a connection string.
func DatabaseName(dsn string) string {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil || cfg.Database == "" {
		return defaultDatabaseName
	}
	return cfg.Database
}

func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back the last migration (DEV ONLY)
func (m *Migrator) Down() error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations (DANGEROUS)
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if m.db != nil {
		_ = m.db.Close()
	}
	if srcErr != nil {
		return fmt.Errorf("close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}
