// Package db owns the Postgres pool and migrations. Both binaries build
// their pool here so the tuning stays in one place.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/DataCleaninghash/CustomerAII/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The API serves short request-scoped queries while the worker holds
// connections across long call executions, so the pool keeps a modest floor
// of warm connections and recycles the rest.
const (
	maxConns          = 25
	minConns          = 5
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
)

// NewPool builds a pgx pool and verifies connectivity before returning it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
