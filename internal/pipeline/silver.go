package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// Silver aggregates the bronze partition into per-city daily rows.
type Silver struct {
	Upstream    refresh.PartitionReader
	Target      refresh.Target
	Coordinator *refresh.Coordinator
	Journal     journal.Manager
	Log         *slog.Logger
}

// Run refreshes the silver partition for one date. A missing or empty
// bronze partition fails the run; it does not erase previously
// published silver data.
func (s *Silver) Run(ctx context.Context, date rows.LogicalDate) refresh.Outcome {
	started := time.Now()
	log := s.Log.With("layer", LayerSilver, "date", date.String())

	bronze, err := s.Upstream.ReadPartition(ctx, date)
	if err != nil {
		out := failedOutcome(s.Target, date, fmt.Errorf("reading bronze partition: %w", err))
		finish(ctx, log, s.Journal, LayerSilver, out, started)
		return out
	}
	if len(bronze) == 0 {
		out := failedOutcome(s.Target, date, fmt.Errorf("bronze %s: %w", date, refresh.ErrUpstreamEmpty))
		finish(ctx, log, s.Journal, LayerSilver, out, started)
		return out
	}

	aggregated, err := TransformSilver(bronze, date)
	if err != nil {
		out := failedOutcome(s.Target, date, err)
		finish(ctx, log, s.Journal, LayerSilver, out, started)
		return out
	}

	out := s.Coordinator.Refresh(ctx, s.Target, date, aggregated)
	finish(ctx, log, s.Journal, LayerSilver, out, started)
	return out
}
