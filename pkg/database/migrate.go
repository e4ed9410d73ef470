package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/pkg/config"
)

// Migrate applies the pending NNNN_name.up.sql files of fsys and returns the
// schema version afterwards. golang-migrate serialises concurrent replicas
// with a Postgres advisory lock and refuses to run on a dirty version.
// Cancelling ctx stops after the migration in flight.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, fsys fs.FS, logger *zap.Logger) (uint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src, err := newSource(fsys)
	if err != nil {
		return 0, err
	}

	// The driver closes the pool it is given, so migrations get their own.
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		_ = src.Close()
		return 0, fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return 0, fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return 0, fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{logger: logger.Sugar()}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// newSource opens fsys as a migration source and fails when it holds no
// migrations.
func newSource(fsys fs.FS) (source.Driver, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	if _, err := src.First(); err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("read first migration: %w", err)
	}
	return src, nil
}

type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return false
}
