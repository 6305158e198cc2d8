package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/nightowl-social/nightowl/internal/logging"
)

// Migrator brings the schema up to date at server startup. Rollbacks are an
// operational task for the migrate CLI, so only the forward path is exposed.
type Migrator struct {
	m      *migrate.Migrate
	logger *logging.Logger
}

func NewMigrator(dsn, migrationsPath string, logger *logging.Logger) (*Migrator, error) {
	if logger == nil {
		logger = logging.Default
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening migration source: %w", err)
	}

	return &Migrator{
		m:      m,
		logger: logger.With(logging.Fields{"component": "migrator"}),
	}, nil
}

// Up applies every pending migration. A schema that is already current is
// not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema already up to date")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, _, err := m.m.Version()
	if err != nil {
		m.logger.Info("Migrations applied")
		return nil
	}
	m.logger.Info("Migrations applied", logging.Fields{"version": version})
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
