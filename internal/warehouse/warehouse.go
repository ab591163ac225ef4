// Package warehouse publishes gold tables to PostgreSQL.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink owns the connection pool to the warehouse database.
type Sink struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewSink connects to the warehouse database.
func NewSink(ctx context.Context, databaseURL string, logger *slog.Logger) (*Sink, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing warehouse URL: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating warehouse pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging warehouse: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		pool: pool,
		log:  logger.With("component", "warehouse"),
	}, nil
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}
