package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

type Migrator struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewDatabaseMigrator(db *sqlx.DB, logger *slog.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Create the schema if needed and apply every pending migration to it
func (m *Migrator) Migrate(ctx context.Context, schemaName string) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migrate: failed to connect to db: %w", err)
	}
	defer conn.Close()

	if err := useSchema(ctx, conn, schemaName); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	instance, closeInstance, err := newMigrateInstance(ctx, conn, schemaName)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer closeInstance()

	m.logger.InfoContext(ctx, "Starting migrations", "schema", schemaName)
	err = instance.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.InfoContext(ctx, "No migrations to run", "schema", schemaName)
	case err != nil:
		return fmt.Errorf("migrate: failed to migrate: %w", err)
	default:
		m.logger.InfoContext(ctx, "Migrations completed", "schema", schemaName)
	}

	return nil
}

func useSchema(ctx context.Context, conn *sql.Conn, schemaName string) error {
	quoted := pq.QuoteIdentifier(schemaName)
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoted)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", quoted)); err != nil {
		return fmt.Errorf("failed to set search path: %w", err)
	}
	return nil
}

func newMigrateInstance(ctx context.Context, conn *sql.Conn, schemaName string) (*migrate.Migrate, func(), error) {
	source, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		DatabaseName: DB_NAME,
		SchemaName:   schemaName,
	})
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return instance, func() { instance.Close() }, nil
}
