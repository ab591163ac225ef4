package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refdata"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Gold joins the silver partition with city reference data and
// publishes it to the warehouse.
type Gold struct {
	Upstream    refresh.PartitionReader
	Target      refresh.Target
	Cities      map[int64]refdata.City
	Coordinator *refresh.Coordinator
	Journal     journal.Manager
	Log         *slog.Logger
}

// Run refreshes the gold partition for one date. A missing or empty
// silver partition fails the run.
func (g *Gold) Run(ctx context.Context, date rows.LogicalDate) refresh.Outcome {
	started := time.Now()
	log := g.Log.With("layer", LayerGold, "date", date.String())

	silver, err := g.Upstream.ReadPartition(ctx, date)
	if err != nil {
		out := failedOutcome(g.Target, date, fmt.Errorf("reading silver partition: %w", err))
		finish(ctx, log, g.Journal, LayerGold, out, started)
		return out
	}
	if len(silver) == 0 {
		out := failedOutcome(g.Target, date, fmt.Errorf("silver %s: %w", date, refresh.ErrUpstreamEmpty))
		finish(ctx, log, g.Journal, LayerGold, out, started)
		return out
	}

	enriched, err := TransformGold(silver, g.Cities)
	if err != nil {
		out := failedOutcome(g.Target, date, err)
		finish(ctx, log, g.Journal, LayerGold, out, started)
		return out
	}
	if len(enriched) < len(silver) {
		log.Warn("cities dropped by reference join",
			"silver_rows", len(silver),
			"gold_rows", len(enriched),
		)
	}

	out := g.Coordinator.Refresh(ctx, g.Target, date, enriched)
	finish(ctx, log, g.Journal, LayerGold, out, started)
	return out
}
