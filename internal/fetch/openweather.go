package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/metrics"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig configures the OpenWeather client.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Cities  []CityQuery
}

// OpenWeather fetches current weather observations for a fixed list of
// cities. A circuit breaker sits in front of the API so a flapping
// upstream fails fast instead of burning the whole retry budget.
type OpenWeather struct {
	cfg     OpenWeatherConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewOpenWeather creates an OpenWeather source.
func NewOpenWeather(cfg OpenWeatherConfig, logger *slog.Logger) *OpenWeather {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &OpenWeather{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		log:     logger.With("component", "fetch"),
	}
}

// observation mirrors the fields of the current weather response.
type observation struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int64   `json:"humidity"`
		Pressure  int64   `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		ID   int64  `json:"id"`
		Main string `json:"main"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

// FetchDaily implements Source. A failure for any city aborts the
// whole batch; a partial partition must never be published.
func (o *OpenWeather) FetchDaily(ctx context.Context, date rows.LogicalDate) (*Batch, error) {
	batch := &Batch{}
	var rawPayloads []json.RawMessage

	for _, city := range o.cfg.Cities {
		row, raw, err := o.fetchCity(ctx, city, date)
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.IncFetchErrors("openweather")
			}
			return nil, refresh.FetchErr(fmt.Errorf("fetching %s: %w", city.Name, err))
		}
		batch.Rows = append(batch.Rows, row)
		rawPayloads = append(rawPayloads, raw)
	}

	raw, err := json.Marshal(rawPayloads)
	if err != nil {
		return nil, refresh.FetchErr(fmt.Errorf("assembling raw payload: %w", err))
	}
	batch.Raw = raw

	o.log.Info("daily fetch complete",
		"date", date.String(),
		"cities", len(o.cfg.Cities),
		"rows", len(batch.Rows),
	)
	return batch, nil
}

func (o *OpenWeather) fetchCity(ctx context.Context, city CityQuery, date rows.LogicalDate) (rows.Row, json.RawMessage, error) {
	q := city.Name
	if city.Country != "" {
		q += "," + city.Country
	}
	endpoint := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
		o.cfg.BaseURL, url.QueryEscape(q), url.QueryEscape(o.cfg.APIKey))

	result, err := o.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := o.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, truncate(body, 200))
		}
		return body, nil
	})
	if err != nil {
		return nil, nil, err
	}
	body := result.([]byte)

	var obs observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, nil, fmt.Errorf("decoding response for %s: %w", city.Name, err)
	}

	weather := ""
	var weatherCode int64
	if len(obs.Weather) > 0 {
		weather = obs.Weather[0].Main
		weatherCode = obs.Weather[0].ID
	}

	row := rows.Row{
		"city_id":      city.ID,
		"city":         obs.Name,
		"country":      obs.Sys.Country,
		"temperature":  obs.Main.Temp,
		"feels_like":   obs.Main.FeelsLike,
		"humidity":     obs.Main.Humidity,
		"pressure":     obs.Main.Pressure,
		"weather":      weather,
		"weather_code": weatherCode,
		"wind_speed":   obs.Wind.Speed,
		"timestamp":    time.Unix(obs.Dt, 0).UTC(),
		"date_id":      date.String(),
	}
	return row, json.RawMessage(body), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
