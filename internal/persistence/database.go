package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/config"
)

// Database is the opened storage backend selected by configuration.
type Database struct {
	DB     *sql.DB
	Driver string
	ping   func(context.Context) error
	close  func()
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Database, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Database{DB: pg.DB, Driver: config.DriverPostgres, ping: pg.Ping, close: pg.Close}, nil
	case config.DriverSQLite:
		lite, err := NewSQLite(ctx, cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Database{DB: lite.DB, Driver: config.DriverSQLite, ping: lite.Ping, close: lite.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// Ping verifies connectivity.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.ping == nil {
		return errNotConfigured("database")
	}
	return d.ping(ctx)
}

// Close releases resources.
func (d *Database) Close() {
	if d != nil && d.close != nil {
		d.close()
	}
}

func errNotConfigured(name string) error {
	return fmt.Errorf("%s not configured", name)
}
