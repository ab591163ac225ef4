// Command weather-pipeline runs the daily bronze, silver and gold
// refreshes of the weather lakehouse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/config"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/fetch"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/lake"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/lake/catalog"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/logging"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/metrics"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/pipeline"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refdata"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/warehouse"
)

var (
	flagDate         string
	flagPipelineFile string
)

func main() {
	root := &cobra.Command{
		Use:          "weather-pipeline",
		Short:        "Daily medallion refresh for weather data",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagDate, "date", "", "logical date to refresh (YYYY-MM-DD, default today UTC)")
	root.PersistentFlags().StringVar(&flagPipelineFile, "config", "", "path to the pipeline YAML file")

	root.AddCommand(
		layerCommand("bronze", "Fetch raw observations into the bronze table"),
		layerCommand("silver", "Aggregate bronze observations into the silver table"),
		layerCommand("gold", "Join silver aggregates with reference data into the warehouse"),
		layerCommand("all", "Run bronze, silver and gold in order"),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func layerCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), name)
		},
	}
}

func run(parent context.Context, layer string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
	log = logging.WithContext(ctx, log)

	if cfg.MetricsEnabled {
		metrics.Init("weather_pipeline")
		go func() {
			if err := metrics.StartServer(cfg.MetricsAddress); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	pipelineFile := cfg.PipelineFile
	if flagPipelineFile != "" {
		pipelineFile = flagPipelineFile
	}
	pl, err := config.LoadPipeline(pipelineFile)
	if err != nil {
		return err
	}

	date := rows.Today()
	if flagDate != "" {
		if date, err = rows.ParseDate(flagDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	bucket, err := lake.OpenBucket(ctx, lake.BucketConfig{
		Backend:  cfg.Storage.Backend,
		Bucket:   cfg.Storage.Bucket,
		LocalDir: cfg.Storage.LocalDir,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return err
	}
	defer bucket.Close()

	var cat catalog.Catalog
	if cfg.CatalogURL != "" {
		pg, err := catalog.NewPostgres(ctx, cfg.CatalogURL, log)
		if err != nil {
			return fmt.Errorf("connecting to catalog: %w", err)
		}
		cat = pg
	} else {
		log.Warn("no CATALOG_DATABASE_URL set, using in-memory catalog")
		cat = catalog.NewMemory()
	}
	defer cat.Close()

	store := lake.NewStore(bucket, pl.Namespace, cat, log)

	jm, err := journal.NewFileManager(cfg.JournalPath)
	if err != nil {
		log.Warn("journal disabled", "error", err)
		jm = journal.NewNoopManager()
	}

	coord := refresh.New(refresh.Config{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	})

	bronzeTable := lake.NewTable(store, pl.Tables.Bronze, pipeline.BronzeSchema())
	silverTable := lake.NewTable(store, pl.Tables.Silver, pipeline.SilverSchema())

	runBronze := func() refresh.Outcome {
		src := fetch.NewOpenWeather(fetch.OpenWeatherConfig{
			APIKey:  cfg.OpenWeatherAPIKey,
			BaseURL: cfg.OpenWeatherBaseURL,
			Timeout: cfg.FetchTimeout,
			Cities:  pl.Cities,
		}, log)
		b := &pipeline.Bronze{
			Source:      src,
			Target:      bronzeTable,
			Archiver:    store,
			Coordinator: coord,
			Journal:     jm,
			Log:         log,
		}
		return b.Run(ctx, date)
	}

	runSilver := func() refresh.Outcome {
		s := &pipeline.Silver{
			Upstream:    bronzeTable,
			Target:      silverTable,
			Coordinator: coord,
			Journal:     jm,
			Log:         log,
		}
		return s.Run(ctx, date)
	}

	runGold := func() (refresh.Outcome, error) {
		if cfg.WarehouseURL == "" {
			return refresh.Outcome{}, fmt.Errorf("WAREHOUSE_DATABASE_URL is required for the gold layer")
		}
		sink, err := warehouse.NewSink(ctx, cfg.WarehouseURL, log)
		if err != nil {
			return refresh.Outcome{}, fmt.Errorf("connecting to warehouse: %w", err)
		}
		defer sink.Close()

		goldTable := warehouse.NewTable(sink, pl.Tables.Gold, pipeline.GoldSchema())
		if err := goldTable.EnsureTable(ctx); err != nil {
			return refresh.Outcome{}, fmt.Errorf("preparing gold table: %w", err)
		}

		cities, err := refdata.Load(ctx, bucket, pl.RefdataKey)
		if err != nil {
			return refresh.Outcome{}, fmt.Errorf("loading city reference data: %w", err)
		}

		g := &pipeline.Gold{
			Upstream:    silverTable,
			Target:      goldTable,
			Cities:      refdata.Index(cities),
			Coordinator: coord,
			Journal:     jm,
			Log:         log,
		}
		return g.Run(ctx, date), nil
	}

	var layers []string
	if layer == "all" {
		layers = []string{"bronze", "silver", "gold"}
	} else {
		layers = []string{layer}
	}

	for _, l := range layers {
		var out refresh.Outcome
		switch l {
		case "bronze":
			out = runBronze()
		case "silver":
			out = runSilver()
		case "gold":
			if out, err = runGold(); err != nil {
				return err
			}
		}
		if !out.OK() {
			return fmt.Errorf("%s refresh of %s failed: %w", l, date, out.Err)
		}
	}
	return nil
}
