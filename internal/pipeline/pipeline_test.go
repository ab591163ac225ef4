package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/fetch"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/journal"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/lake"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/lake/catalog"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refdata"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/rows"
)

// scriptedSource returns canned batches per date.
type scriptedSource struct {
	batches map[string]*fetch.Batch
	err     error
}

func (s *scriptedSource) FetchDaily(ctx context.Context, date rows.LogicalDate) (*fetch.Batch, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.batches[date.String()]
	if !ok {
		return &fetch.Batch{}, nil
	}
	return b, nil
}

// memWarehouse stands in for the Postgres gold table.
type memWarehouse struct {
	mu         sync.Mutex
	partitions map[string][]rows.Row
}

func newMemWarehouse() *memWarehouse {
	return &memWarehouse{partitions: make(map[string][]rows.Row)}
}

func (m *memWarehouse) Handle() refresh.TableHandle {
	return refresh.TableHandle{Table: "weather_gold", Engine: refresh.EngineWarehouse, PartitionColumn: "date_id"}
}

func (m *memWarehouse) ReadPartition(ctx context.Context, date rows.LogicalDate) ([]rows.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rows.Row(nil), m.partitions[date.String()]...), nil
}

func (m *memWarehouse) ReplacePartition(ctx context.Context, date rows.LogicalDate, rs []rows.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partitions[date.String()] = append([]rows.Row(nil), rs...)
	return nil
}

type testEnv struct {
	store       *lake.Store
	bronzeTable *lake.Table
	silverTable *lake.Table
	goldTable   *memWarehouse
	coord       *refresh.Coordinator
	log         *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	store := lake.NewStore(bucket, "weather", catalog.NewMemory(), nil)
	return &testEnv{
		store:       store,
		bronzeTable: lake.NewTable(store, "weather_bronze", BronzeSchema()),
		silverTable: lake.NewTable(store, "weather_silver", SilverSchema()),
		goldTable:   newMemWarehouse(),
		coord: refresh.New(refresh.Config{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		}),
		log: slog.Default(),
	}
}

func observationBatch(date rows.LogicalDate, temps []float64) *fetch.Batch {
	b := &fetch.Batch{Raw: []byte(`[{"name":"Seattle"}]`)}
	for i, temp := range temps {
		b.Rows = append(b.Rows, rows.Row{
			"city_id":      int64(1),
			"city":         "Seattle",
			"country":      "US",
			"temperature":  temp,
			"feels_like":   temp - 0.5,
			"humidity":     int64(65),
			"pressure":     int64(1012),
			"weather":      "Rain",
			"weather_code": int64(500),
			"wind_speed":   3.1,
			"timestamp":    date.Time().Add(time.Duration(i) * time.Hour),
			"date_id":      date.String(),
		})
	}
	return b
}

func (e *testEnv) bronze(src fetch.Source) *Bronze {
	return &Bronze{
		Source:      src,
		Target:      e.bronzeTable,
		Archiver:    e.store,
		Coordinator: e.coord,
		Journal:     journal.NewNoopManager(),
		Log:         e.log,
	}
}

func (e *testEnv) silver() *Silver {
	return &Silver{
		Upstream:    e.bronzeTable,
		Target:      e.silverTable,
		Coordinator: e.coord,
		Journal:     journal.NewNoopManager(),
		Log:         e.log,
	}
}

func (e *testEnv) gold() *Gold {
	return &Gold{
		Upstream: e.silverTable,
		Target:   e.goldTable,
		Cities: map[int64]refdata.City{
			1: {CityID: 1, City: "Seattle", Country: "US", Population: 737015, LandAreaKm: 217.0},
		},
		Coordinator: e.coord,
		Journal:     journal.NewNoopManager(),
		Log:         e.log,
	}
}

func TestDayFlowsThroughAllLayers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	src := &scriptedSource{batches: map[string]*fetch.Batch{
		date.String(): observationBatch(date, []float64{14.0, 16.0, 18.0}),
	}}

	if out := env.bronze(src).Run(ctx, date); out.Status != refresh.StatusSucceeded {
		t.Fatalf("bronze: %s %v", out.Status, out.Err)
	}
	if out := env.silver().Run(ctx, date); out.Status != refresh.StatusSucceeded {
		t.Fatalf("silver: %s %v", out.Status, out.Err)
	}
	if out := env.gold().Run(ctx, date); out.Status != refresh.StatusSucceeded {
		t.Fatalf("gold: %s %v", out.Status, out.Err)
	}

	bronzeRows, _ := env.bronzeTable.ReadPartition(ctx, date)
	if len(bronzeRows) != 3 {
		t.Errorf("bronze has %d rows, want 3", len(bronzeRows))
	}

	silverRows, _ := env.silverTable.ReadPartition(ctx, date)
	if len(silverRows) != 1 {
		t.Fatalf("silver has %d rows, want 1", len(silverRows))
	}
	if got := silverRows[0].Float64("avg_temperature"); got != 16.0 {
		t.Errorf("avg_temperature = %v, want 16.0", got)
	}

	goldRows, _ := env.goldTable.ReadPartition(ctx, date)
	if len(goldRows) != 1 {
		t.Fatalf("gold has %d rows, want 1", len(goldRows))
	}
	if goldRows[0].Int64("population") != 737015 {
		t.Errorf("gold row missing reference data: %v", goldRows[0])
	}

	raw, err := env.store.ReadRaw(ctx, "weather_bronze", date)
	if err != nil || raw == nil {
		t.Errorf("raw payload not archived: %v", err)
	}
}

func TestBronzeEmptyFetchLeavesDataIntact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	full := &scriptedSource{batches: map[string]*fetch.Batch{
		date.String(): observationBatch(date, []float64{14.0, 16.0}),
	}}
	if out := env.bronze(full).Run(ctx, date); out.Status != refresh.StatusSucceeded {
		t.Fatalf("bronze: %s %v", out.Status, out.Err)
	}
	if out := env.silver().Run(ctx, date); out.Status != refresh.StatusSucceeded {
		t.Fatalf("silver: %s %v", out.Status, out.Err)
	}

	// Re-run bronze for the same date with an upstream that returns
	// nothing.
	empty := &scriptedSource{}
	out := env.bronze(empty).Run(ctx, date)
	if out.Status != refresh.StatusNoOp {
		t.Fatalf("status = %s, want no_op", out.Status)
	}

	got, _ := env.bronzeTable.ReadPartition(ctx, date)
	if len(got) != 2 {
		t.Errorf("bronze has %d rows after no-op, want 2 untouched", len(got))
	}
	// Downstream output stays published until silver is itself re-run.
	silverRows, _ := env.silverTable.ReadPartition(ctx, date)
	if len(silverRows) != 1 {
		t.Errorf("silver has %d rows after bronze no-op, want 1 untouched", len(silverRows))
	}
}

func TestBronzeFetchFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	src := &scriptedSource{err: refresh.FetchErr(errors.New("upstream down"))}
	out := env.bronze(src).Run(ctx, date)

	if out.Status != refresh.StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if out.ErrKind() != refresh.KindFetch {
		t.Errorf("ErrKind = %s, want fetch", out.ErrKind())
	}
	if got, _ := env.bronzeTable.ReadPartition(ctx, date); len(got) != 0 {
		t.Errorf("bronze has %d rows after failed fetch", len(got))
	}
}

func TestSilverFailsWithoutBronze(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	out := env.silver().Run(ctx, date)
	if out.Status != refresh.StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if !errors.Is(out.Err, refresh.ErrUpstreamEmpty) {
		t.Errorf("err = %v, want ErrUpstreamEmpty", out.Err)
	}
}

func TestSilverRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	src := &scriptedSource{batches: map[string]*fetch.Batch{
		date.String(): observationBatch(date, []float64{10.0, 20.0}),
	}}
	if out := env.bronze(src).Run(ctx, date); !out.OK() {
		t.Fatalf("bronze: %v", out.Err)
	}

	for i := 0; i < 2; i++ {
		if out := env.silver().Run(ctx, date); out.Status != refresh.StatusSucceeded {
			t.Fatalf("silver run %d: %s %v", i, out.Status, out.Err)
		}
	}
	got, _ := env.silverTable.ReadPartition(ctx, date)
	if len(got) != 1 {
		t.Errorf("silver has %d rows after re-run, want 1", len(got))
	}
}

func TestGoldFailsWithoutSilver(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	date, _ := rows.ParseDate("2026-08-29")

	out := env.gold().Run(ctx, date)
	if out.Status != refresh.StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if !errors.Is(out.Err, refresh.ErrUpstreamEmpty) {
		t.Errorf("err = %v, want ErrUpstreamEmpty", out.Err)
	}
}

// Refreshing a backfill date must not disturb the partitions of other
// days anywhere in the chain.
func TestBackfillIsolatesOtherDates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d1, _ := rows.ParseDate("2026-08-28")
	d2, _ := rows.ParseDate("2026-08-29")

	src := &scriptedSource{batches: map[string]*fetch.Batch{
		d1.String(): observationBatch(d1, []float64{12.0}),
		d2.String(): observationBatch(d2, []float64{25.0, 27.0}),
	}}

	for _, d := range []rows.LogicalDate{d1, d2} {
		if out := env.bronze(src).Run(ctx, d); !out.OK() {
			t.Fatalf("bronze %s: %v", d, out.Err)
		}
		if out := env.silver().Run(ctx, d); !out.OK() {
			t.Fatalf("silver %s: %v", d, out.Err)
		}
	}

	// Backfill d1 with corrected data.
	src.batches[d1.String()] = observationBatch(d1, []float64{13.0, 13.5})
	if out := env.bronze(src).Run(ctx, d1); !out.OK() {
		t.Fatalf("bronze backfill: %v", out.Err)
	}
	if out := env.silver().Run(ctx, d1); !out.OK() {
		t.Fatalf("silver backfill: %v", out.Err)
	}

	s2, _ := env.silverTable.ReadPartition(ctx, d2)
	if len(s2) != 1 || s2[0].Float64("avg_temperature") != 26.0 {
		t.Errorf("d2 silver disturbed by d1 backfill: %v", s2)
	}
	s1, _ := env.silverTable.ReadPartition(ctx, d1)
	if len(s1) != 1 || s1[0].Float64("avg_temperature") != 13.25 {
		t.Errorf("d1 silver = %v, want the corrected aggregate", s1)
	}
}
