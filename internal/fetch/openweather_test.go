package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

const seattleBody = `{
	"name": "Seattle",
	"sys": {"country": "US"},
	"main": {"temp": 17.2, "feels_like": 16.8, "humidity": 71, "pressure": 1013},
	"weather": [{"id": 500, "main": "Rain"}],
	"wind": {"speed": 3.6},
	"dt": 1787056200
}`

func testDate(t *testing.T) rows.LogicalDate {
	t.Helper()
	d, err := rows.ParseDate("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestFetchDaily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("appid = %q", got)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("units = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "Seattle,US" {
			t.Errorf("q = %q", got)
		}
		fmt.Fprint(w, seattleBody)
	}))
	defer srv.Close()

	src := NewOpenWeather(OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Cities:  []CityQuery{{ID: 1, Name: "Seattle", Country: "US"}},
	}, nil)

	batch, err := src.FetchDaily(context.Background(), testDate(t))
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(batch.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(batch.Rows))
	}

	r := batch.Rows[0]
	if r.Int64("city_id") != 1 || r.String("city") != "Seattle" || r.String("country") != "US" {
		t.Errorf("identity columns wrong: %v", r)
	}
	if r.Float64("temperature") != 17.2 || r.Int64("humidity") != 71 {
		t.Errorf("measures wrong: %v", r)
	}
	if r.String("weather") != "Rain" || r.Int64("weather_code") != 500 {
		t.Errorf("weather columns wrong: %v", r)
	}
	if r.String("date_id") != "2026-08-29" {
		t.Errorf("date_id = %q", r.String("date_id"))
	}
	if ts := r.Time("timestamp"); !ts.Equal(time.Unix(1787056200, 0).UTC()) {
		t.Errorf("timestamp = %v", ts)
	}
	if len(batch.Raw) == 0 {
		t.Error("raw payload not captured")
	}
}

func TestFetchDailyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewOpenWeather(OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Cities:  []CityQuery{{ID: 1, Name: "Seattle"}},
	}, nil)

	_, err := src.FetchDaily(context.Background(), testDate(t))
	if err == nil {
		t.Fatal("FetchDaily succeeded against a failing upstream")
	}
	if refresh.Classify(err) != refresh.KindFetch {
		t.Errorf("error kind = %s, want fetch", refresh.Classify(err))
	}
}

// One failing city aborts the whole batch: a partial partition must
// never reach the bronze table.
func TestFetchDailyAbortsOnAnyCityFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantis" {
			http.Error(w, "city not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, seattleBody)
	}))
	defer srv.Close()

	src := NewOpenWeather(OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Cities: []CityQuery{
			{ID: 1, Name: "Seattle"},
			{ID: 2, Name: "Atlantis"},
		},
	}, nil)

	_, err := src.FetchDaily(context.Background(), testDate(t))
	if err == nil {
		t.Fatal("FetchDaily succeeded with a failing city")
	}
	if refresh.Classify(err) != refresh.KindFetch {
		t.Errorf("error kind = %s, want fetch", refresh.Classify(err))
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewOpenWeather(OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Cities:  []CityQuery{{ID: 1, Name: "Seattle"}},
	}, nil)

	for i := 0; i < 10; i++ {
		if _, err := src.FetchDaily(context.Background(), testDate(t)); err == nil {
			t.Fatal("FetchDaily succeeded against a failing upstream")
		}
	}
	if hits >= 10 {
		t.Errorf("upstream hit %d times, breaker never opened", hits)
	}
}
