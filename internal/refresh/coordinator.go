// Package refresh implements the idempotent daily refresh protocol: the
// delete-insert replacement of exactly one date partition, retried as a
// whole unit on transient storage failures.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/metrics"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Config bounds the coordinator's retry behaviour.
type Config struct {
	MaxAttempts    int           // total attempts including the first
	InitialBackoff time.Duration // first retry delay
	MaxBackoff     time.Duration // backoff ceiling
}

// DefaultConfig returns the retry policy used in production.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     15 * time.Second,
	}
}

// Coordinator executes the delete-insert protocol for one logical date
// against one target. It owns the transition between "old partition
// visible" and "new partition visible"; the atomicity of each attempt is
// delegated to the target's ReplacePartition.
type Coordinator struct {
	cfg Config
	log *slog.Logger
}

// New creates a coordinator with the given retry policy.
func New(cfg Config) *Coordinator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = 15 * time.Second
	}
	return &Coordinator{
		cfg: cfg,
		log: slog.With("component", "refresh"),
	}
}

// Refresh replaces the date partition of the target with rs.
//
// An empty rs returns NO_OP without touching storage: an upstream that
// produced nothing must never erase previously published data. Transient
// storage failures retry the whole delete-insert unit with exponential
// backoff up to MaxAttempts; fetch, schema and fatal storage errors abort
// immediately. On exhaustion the outcome is FAILED and storage is left in
// whatever state the last attempt produced.
func (c *Coordinator) Refresh(ctx context.Context, t Target, date rows.LogicalDate, rs []rows.Row) Outcome {
	handle := t.Handle()
	log := c.log.With("table", handle.String(), "date_id", date.String())

	if len(rs) == 0 {
		log.Info("no rows to publish, leaving partition untouched")
		return Outcome{Status: StatusNoOp, Target: handle, Date: date}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.MaxElapsedTime = 0 // bounded by MaxAttempts, not wall time
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		err := t.ReplacePartition(ctx, date, rs)
		if err == nil {
			log.Info("partition replaced",
				"rows", len(rs),
				"attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return Outcome{
				Status:   StatusSucceeded,
				Target:   handle,
				Date:     date,
				RowCount: len(rs),
				Attempts: attempt,
			}
		}
		lastErr = err

		kind := Classify(err)
		if kind != KindStorageTransient {
			log.Error("refresh aborted", "kind", kind.String(), "error", err)
			return Outcome{
				Status:   StatusFailed,
				Target:   handle,
				Date:     date,
				Attempts: attempt,
				Err:      err,
			}
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		wait := bo.NextBackOff()
		log.Warn("transient storage failure, retrying whole delete-insert unit",
			"attempt", attempt,
			"backoff", wait.String(),
			"error", err,
		)
		if m := metrics.Get(); m != nil {
			m.IncRetryAttempts(handle.Table)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return Outcome{
				Status:   StatusFailed,
				Target:   handle,
				Date:     date,
				Attempts: attempt,
				Err:      Transient(ctx.Err()),
			}
		}
	}

	log.Error("retries exhausted", "attempts", c.cfg.MaxAttempts, "error", lastErr)
	return Outcome{
		Status:   StatusFailed,
		Target:   handle,
		Date:     date,
		Attempts: c.cfg.MaxAttempts,
		Err:      lastErr,
	}
}
