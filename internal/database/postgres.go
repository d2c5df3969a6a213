// Package database opens the PostgreSQL pool used as a transaction source
// and as the advisory-lock fallback.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/marketing-analytics/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrNoDatabaseURL is returned when Postgres is enabled without a URL.
var ErrNoDatabaseURL = errors.New("postgres database_url is empty")

// Open creates the pool. It does not connect; call Ping for that.
func Open(cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabaseURL
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Ping checks connectivity with a short timeout.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
