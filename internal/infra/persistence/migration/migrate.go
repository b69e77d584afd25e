// Package migration applies the embedded SQL schema with golang-migrate.
package migration

import (
	"context"
	"embed"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"

	"campus/config"
	"campus/internal/errors"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// NewMigrator builds a migrate instance reading the embedded SQL files.
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migration source")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migrator")
	}

	return m, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func Up(databaseURL string) error {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// Register runs the migrations on start when migration.auto is enabled.
func Register(params Params) {
	cfg := params.Config.Migration
	if cfg == nil || !cfg.Auto {
		return
	}

	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.DatabaseURL == "" {
				return errors.New("migration.databaseUrl must be set when migration.auto is enabled")
			}

			if err := Up(cfg.DatabaseURL); err != nil {
				return err
			}

			params.Logger.InfoContext(ctx, "Database migrations applied")

			return nil
		},
	})
}
