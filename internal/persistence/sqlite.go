package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite wraps a single-writer SQLite database used for local runs and tests.
type SQLite struct {
	DB   *sql.DB
	Path string
}

// NewSQLite opens the database file at path with foreign keys enforced.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection keeps transactions from
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("opened sqlite database", zap.String("path", path))
	return &SQLite{DB: db, Path: path}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the handle is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotConfigured("sqlite")
	}
	return s.DB.PingContext(ctx)
}
