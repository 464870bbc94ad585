// Package postgres provides the shared pgx connection pool and a query
// tracer that layers structured logging and metrics on top of otelpgx spans.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolMaxConns        = 10
	poolHealthCheck     = time.Minute
	poolConnectTimeout  = 10 * time.Second
	poolMaxConnLifetime = time.Hour
)

// NewPool builds a pgx pool with the otelpgx tracer wrapped in our logging
// tracer, and verifies connectivity before returning.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = poolMaxConns
	cfg.MaxConnLifetime = poolMaxConnLifetime
	cfg.HealthCheckPeriod = poolHealthCheck
	cfg.ConnConfig.ConnectTimeout = poolConnectTimeout
	cfg.ConnConfig.Tracer = wrapQueryTracer(otelpgx.NewTracer())

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}
