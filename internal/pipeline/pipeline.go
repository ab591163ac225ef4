// Package pipeline wires the bronze, silver and gold layers of the
// daily weather refresh.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/metrics"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Layer names used in logs, metrics and the journal.
const (
	LayerBronze = "bronze"
	LayerSilver = "silver"
	LayerGold   = "gold"
)

// finish records the outcome of one layer invocation in metrics, the
// journal and the log.
func finish(ctx context.Context, log *slog.Logger, jm journal.Manager, layer string, out refresh.Outcome, started time.Time) {
	elapsed := time.Since(started)

	if m := metrics.Get(); m != nil {
		m.IncRefreshes(layer, out.Target.Table, out.Status.String())
		m.ObserveRefreshDuration(layer, out.Target.Table, elapsed.Seconds())
		if out.Status == refresh.StatusSucceeded {
			m.AddRowsPublished(layer, out.Target.Table, float64(out.RowCount))
			m.SetLastRefresh(layer, out.Target.Table, float64(time.Now().Unix()))
		}
	}

	if jm != nil {
		entry := journal.Entry{
			Layer:    layer,
			Table:    out.Target.Table,
			Date:     out.Date.String(),
			Outcome:  out.Status.String(),
			RowCount: out.RowCount,
			Attempts: out.Attempts,
		}
		if err := jm.Record(ctx, entry); err != nil {
			log.Warn("failed to record journal entry", "error", err)
		}
	}

	attrs := []any{
		"layer", layer,
		"table", out.Target.Table,
		"date", out.Date.String(),
		"outcome", out.Status.String(),
		"rows", out.RowCount,
		"attempts", out.Attempts,
		"elapsed", elapsed.String(),
	}
	if out.Err != nil {
		attrs = append(attrs, "error", out.Err, "error_kind", out.ErrKind().String())
		log.Error("layer refresh failed", attrs...)
		return
	}
	log.Info("layer refresh finished", attrs...)
}

func failedOutcome(t refresh.Target, date rows.LogicalDate, err error) refresh.Outcome {
	return refresh.Outcome{
		Status: refresh.StatusFailed,
		Target: t.Handle(),
		Date:   date,
		Err:    err,
	}
}
