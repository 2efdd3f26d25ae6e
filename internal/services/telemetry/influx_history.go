package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// InfluxHistory reads the exported readings back as windowed means.
type InfluxHistory struct {
	query       api.QueryAPI
	bucket      string
	measurement string
	span        time.Duration
	every       time.Duration
	timeout     time.Duration
}

func NewInfluxHistory(q api.QueryAPI, bucket, measurement string, span, every time.Duration) *InfluxHistory {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	if every <= 0 {
		every = time.Hour
	}
	if span <= 0 {
		span = 24 * every
	}
	return &InfluxHistory{query: q, bucket: bucket, measurement: measurement, span: span, every: every, timeout: 5 * time.Second}
}

func buildHistoryFlux(bucket, measurement, zoneID string, span, every time.Duration) string {
	zoneFilter := ""
	if zoneID != "" {
		zoneFilter = fmt.Sprintf("\n  |> filter(fn: (r) => r.zone_id == %q)", zoneID)
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)%s
  |> filter(fn: (r) => r._field == "ph" or r._field == "temperature_c" or r._field == "humidity_pct")
  |> aggregateWindow(every: %dm, fn: mean, createEmpty: false)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> keep(columns: ["_time","zone_id","ph","temperature_c","humidity_pct"])
  |> sort(columns: ["_time"])
`, bucket, int(span.Minutes()), measurement, zoneFilter, int(every.Minutes()))
}

func (h *InfluxHistory) Points(ctx context.Context, zoneID string) ([]entities.HistoryPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res, err := h.query.Query(ctx, buildHistoryFlux(h.bucket, h.measurement, zoneID, h.span, h.every))
	if err != nil {
		return nil, fmt.Errorf("influx history query: %w", err)
	}
	defer func() { _ = res.Close() }()

	var out []entities.HistoryPoint
	for res.Next() {
		rec := res.Record()
		p := entities.HistoryPoint{
			Time:         rec.Time().UTC(),
			PH:           toF64(rec.ValueByKey("ph")),
			TemperatureC: toF64(rec.ValueByKey("temperature_c")),
			HumidityPct:  toF64(rec.ValueByKey("humidity_pct")),
		}
		if s, ok := rec.ValueByKey("zone_id").(string); ok {
			p.ZoneID = strings.TrimSpace(s)
		}
		out = append(out, p)
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("influx history iterate: %w", res.Err())
	}
	sortPoints(out)
	return out, nil
}

func toF64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
