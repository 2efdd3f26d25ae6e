package telemetry

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
)

type fakeWriteAPI struct {
	api.WriteAPI
	mu     sync.Mutex
	points []*write.Point
	errs   chan error
}

func newFakeWriteAPI() *fakeWriteAPI { return &fakeWriteAPI{errs: make(chan error, 1)} }

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func (f *fakeWriteAPI) Flush() {}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestExporterWritesOnePointPerZone(t *testing.T) {
	w := newFakeWriteAPI()
	e := NewExporter(w, "", zerolog.Nop())

	zones := simulator.DefaultZones(t0)
	zones[1].Status = entities.StatusWarning
	e.Handle(zonestore.Update{Tick: 7, At: t0, Zones: zones})

	if e.Written() != 2 || len(w.points) != 2 {
		t.Fatalf("written=%d points=%d", e.Written(), len(w.points))
	}
	line := write.PointToLineProtocol(w.points[1], time.Nanosecond)
	for _, want := range []string{"zone_reading,", "zone_id=z2", "status=WARNING", "ph=5.4", "tick=7i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q lacks %q", line, want)
		}
	}
}

func TestExporterTracksWriteErrors(t *testing.T) {
	w := newFakeWriteAPI()
	e := NewExporter(w, "custom", zerolog.Nop())
	if e.LastErrorAge() < time.Hour {
		t.Fatalf("fresh exporter reports a recent error")
	}

	w.errs <- errors.New("401 unauthorized")
	deadline := time.Now().Add(time.Second)
	for e.LastErrorAge() > time.Minute {
		if time.Now().After(deadline) {
			t.Fatal("write error not recorded")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHistoryBucketsAndAverages(t *testing.T) {
	h := NewHistory(time.Hour, 2)

	add := func(at time.Time, ph, temp float64) {
		h.Add("z1", entities.SensorReading{Timestamp: at, PH: ph, TemperatureC: temp, HumidityPct: 60})
	}
	add(t0, 6.0, 20)
	add(t0.Add(10*time.Minute), 6.4, 22)
	add(t0.Add(time.Hour), 5.0, 18)
	add(t0.Add(2*time.Hour), 7.0, 30)

	pts, err := h.Points(context.Background(), "z1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 2 {
		t.Fatalf("keep=2 but got %d buckets", len(pts))
	}
	if !pts[0].Time.Equal(t0.Add(time.Hour)) || pts[0].Samples != 1 || pts[0].PH != 5.0 {
		t.Fatalf("oldest kept bucket %+v", pts[0])
	}

	h2 := NewHistory(time.Hour, 24)
	h2.Add("z1", entities.SensorReading{Timestamp: t0, PH: 6.0, TemperatureC: 20})
	h2.Add("z1", entities.SensorReading{Timestamp: t0.Add(time.Minute), PH: 6.4, TemperatureC: 22})
	pts, _ = h2.Points(context.Background(), "")
	if len(pts) != 1 || math.Abs(pts[0].PH-6.2) > 1e-9 || pts[0].TemperatureC != 21 || pts[0].Samples != 2 {
		t.Fatalf("average %+v", pts)
	}
}

func TestHistoryFromStoreUpdates(t *testing.T) {
	h := NewHistory(time.Hour, 24)
	zones := simulator.DefaultZones(t0)
	h.Handle(zonestore.Update{Tick: 1, At: t0, Zones: zones})

	all, _ := h.Points(context.Background(), "")
	if len(all) != 2 || all[0].ZoneID != "z1" || all[1].ZoneID != "z2" {
		t.Fatalf("points %+v", all)
	}
	only, _ := h.Points(context.Background(), "z2")
	if len(only) != 1 || only[0].PH != 5.4 {
		t.Fatalf("z2 points %+v", only)
	}
}

type staticSource struct {
	pts []entities.HistoryPoint
	err error
}

func (s staticSource) Points(context.Context, string) ([]entities.HistoryPoint, error) {
	return s.pts, s.err
}

func TestFallback(t *testing.T) {
	mem := staticSource{pts: []entities.HistoryPoint{{ZoneID: "mem"}}}
	influx := staticSource{pts: []entities.HistoryPoint{{ZoneID: "influx"}}}

	got, _ := Fallback{Primary: influx, Secondary: mem}.Points(context.Background(), "")
	if got[0].ZoneID != "influx" {
		t.Fatalf("primary not preferred: %+v", got)
	}
	got, _ = Fallback{Primary: staticSource{err: errors.New("down")}, Secondary: mem}.Points(context.Background(), "")
	if got[0].ZoneID != "mem" {
		t.Fatalf("no fallback on error: %+v", got)
	}
	got, _ = Fallback{Primary: staticSource{}, Secondary: mem}.Points(context.Background(), "")
	if got[0].ZoneID != "mem" {
		t.Fatalf("no fallback on empty: %+v", got)
	}
}

func TestBuildHistoryFlux(t *testing.T) {
	q := buildHistoryFlux("hydro", "zone_reading", "z1", 24*time.Hour, time.Hour)
	for _, want := range []string{
		`from(bucket: "hydro")`,
		`range(start: -1440m)`,
		`r._measurement == "zone_reading"`,
		`r.zone_id == "z1"`,
		`aggregateWindow(every: 60m, fn: mean`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query lacks %q:\n%s", want, q)
		}
	}
	if strings.Contains(buildHistoryFlux("hydro", "zone_reading", "", time.Hour, time.Hour), "zone_id ==") {
		t.Error("zone filter present without zone id")
	}
}
