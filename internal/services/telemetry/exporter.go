package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
)

const DefaultMeasurement = "zone_reading"

// Exporter scrive ogni lettura su Influx tramite WriteAPI non bloccante e
// traccia l'ultimo errore di scrittura per /healthz e /readyz.
type Exporter struct {
	api         api.WriteAPI
	measurement string
	log         zerolog.Logger

	mu      sync.RWMutex
	lastErr time.Time
	written atomic.Int64
}

func NewExporter(w api.WriteAPI, measurement string, logger zerolog.Logger) *Exporter {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	e := &Exporter{
		api:         w,
		measurement: measurement,
		log:         logger,
		lastErr:     time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				e.mu.Lock()
				e.lastErr = time.Now()
				e.mu.Unlock()
				metrics.SinkErrorsTotal.WithLabelValues("influx").Inc()
				e.log.Warn().Err(err).Msg("telemetry: influx write error")
			}
		}
	}()
	return e
}

// Handle is a zone store subscriber.
func (e *Exporter) Handle(u zonestore.Update) {
	for _, z := range u.Zones {
		e.api.WritePoint(ReadingToPoint(e.measurement, z, u.Tick))
		e.written.Add(1)
	}
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (e *Exporter) LastErrorAge() time.Duration {
	if e == nil {
		return 99999 * time.Hour
	}
	e.mu.RLock()
	t := e.lastErr
	e.mu.RUnlock()
	return time.Since(t)
}

// Written counts points handed to the write API.
func (e *Exporter) Written() int64 { return e.written.Load() }

func (e *Exporter) Flush() { e.api.Flush() }

// ReadingToPoint normalizza la lettura di una zona in un *write.Point.
func ReadingToPoint(measurement string, z entities.Zone, tick uint64) *write.Point {
	tags := map[string]string{
		"zone_id": z.ID,
		"status":  string(z.Status),
	}
	if z.CropName != "" {
		tags["crop"] = z.CropName
	}

	r := z.CurrentReading
	fields := map[string]interface{}{
		"ph":            r.PH,
		"temperature_c": r.TemperatureC,
		"humidity_pct":  r.HumidityPct,
		"light_lux":     r.LightLux,
		"ec_ms_cm":      r.EcMsCm,
		"tick":          int64(tick),
	}

	t := r.Timestamp
	if t.IsZero() {
		t = z.LastSync
	}
	return influxdb2.NewPoint(measurement, tags, fields, t)
}
