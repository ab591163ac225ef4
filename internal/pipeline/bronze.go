package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/fetch"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// RawArchiver stores the raw upstream payload for audit.
type RawArchiver interface {
	ArchiveRaw(ctx context.Context, table string, date rows.LogicalDate, payload []byte) error
}

// Bronze fetches raw observations and lands them in the bronze table.
type Bronze struct {
	Source      fetch.Source
	Target      refresh.Target
	Archiver    RawArchiver // optional
	Coordinator *refresh.Coordinator
	Journal     journal.Manager
	Log         *slog.Logger
}

// Run refreshes the bronze partition for one date.
func (b *Bronze) Run(ctx context.Context, date rows.LogicalDate) refresh.Outcome {
	started := time.Now()
	log := b.Log.With("layer", LayerBronze, "date", date.String())

	batch, err := b.Source.FetchDaily(ctx, date)
	if err != nil {
		out := failedOutcome(b.Target, date, err)
		finish(ctx, log, b.Journal, LayerBronze, out, started)
		return out
	}

	if b.Archiver != nil && len(batch.Raw) > 0 {
		// Archive failures do not block the refresh; the parquet data
		// is the source of truth.
		if err := b.Archiver.ArchiveRaw(ctx, b.Target.Handle().Table, date, batch.Raw); err != nil {
			log.Warn("failed to archive raw payload", "error", err)
		}
	}

	out := b.Coordinator.Refresh(ctx, b.Target, date, batch.Rows)
	finish(ctx, log, b.Journal, LayerBronze, out, started)
	return out
}
