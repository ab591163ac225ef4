// Package config loads pipeline configuration from the environment
// and from a YAML pipeline file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/fetch"
)

// StorageConfig selects the object storage backend for the lake.
type StorageConfig struct {
	Backend  string
	Bucket   string
	LocalDir string
	Prefix   string
}

// RetryConfig tunes the refresh retry loop.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Config is the full environment configuration.
type Config struct {
	Storage      StorageConfig
	CatalogURL   string
	WarehouseURL string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	FetchTimeout       time.Duration

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
	MetricsAddress string

	JournalPath  string
	Retry        RetryConfig
	PipelineFile string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored if present.
func Load() (*Config, error) {
	// Missing .env is fine; a .env that exists but cannot be parsed
	// should not fail silently.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Storage: StorageConfig{
			Backend:  getenvDefault("STORAGE_BACKEND", "local"),
			Bucket:   os.Getenv("STORAGE_BUCKET"),
			LocalDir: getenvDefault("STORAGE_LOCAL_DIR", "./lake-data"),
			Prefix:   os.Getenv("STORAGE_PREFIX"),
		},
		CatalogURL:   os.Getenv("CATALOG_DATABASE_URL"),
		WarehouseURL: os.Getenv("WAREHOUSE_DATABASE_URL"),

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),

		LogLevel:  getenvDefault("LOG_LEVEL", "info"),
		LogFormat: getenvDefault("LOG_FORMAT", "json"),

		MetricsEnabled: getenvDefault("METRICS_ENABLED", "false") == "true",
		MetricsAddress: getenvDefault("METRICS_ADDRESS", ":9090"),

		JournalPath:  getenvDefault("JOURNAL_PATH", "./pipeline-journal.json"),
		PipelineFile: getenvDefault("PIPELINE_CONFIG", "./pipeline.yaml"),
	}

	var err error
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxAttempts, err = getenvInt("REFRESH_MAX_ATTEMPTS", 4); err != nil {
		return nil, err
	}
	if cfg.Retry.InitialBackoff, err = getenvDuration("REFRESH_INITIAL_BACKOFF", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxBackoff, err = getenvDuration("REFRESH_MAX_BACKOFF", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("REFRESH_MAX_ATTEMPTS must be at least 1")
	}
	switch cfg.Storage.Backend {
	case "local", "gcs", "s3", "mem":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be one of local, gcs, s3, mem; got %q", cfg.Storage.Backend)
	}
	if (cfg.Storage.Backend == "gcs" || cfg.Storage.Backend == "s3") && cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required for backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// TableNames holds the table name of each layer.
type TableNames struct {
	Bronze string `yaml:"bronze"`
	Silver string `yaml:"silver"`
	Gold   string `yaml:"gold"`
}

// Pipeline is the YAML pipeline definition: which cities to fetch and
// where each layer lands.
type Pipeline struct {
	Namespace  string            `yaml:"namespace"`
	Tables     TableNames        `yaml:"tables"`
	RefdataKey string            `yaml:"refdata_key"`
	Cities     []fetch.CityQuery `yaml:"cities"`
}

// LoadPipeline reads and validates the YAML pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline parses pipeline YAML content.
func ParsePipeline(data []byte) (*Pipeline, error) {
	p := &Pipeline{
		Namespace: "weather",
		Tables: TableNames{
			Bronze: "weather_bronze",
			Silver: "weather_silver",
			Gold:   "weather_gold",
		},
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing pipeline file: %w", err)
	}
	if len(p.Cities) == 0 {
		return nil, fmt.Errorf("pipeline file defines no cities")
	}
	seen := make(map[int64]bool)
	for _, c := range p.Cities {
		if c.ID == 0 || c.Name == "" {
			return nil, fmt.Errorf("every city needs an id and a name")
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate city id %d", c.ID)
		}
		seen[c.ID] = true
	}
	return p, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
