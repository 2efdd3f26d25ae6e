package entities

import (
	"math"
	"strings"
	"time"
)

// Domain of the pH scale; every reading produced by the engine stays inside it.
const (
	PHMin = 0.0
	PHMax = 14.0
)

// SensorReading is the instantaneous environmental measurement of a zone.
type SensorReading struct {
	Timestamp    time.Time `json:"timestamp"`
	PH           float64   `json:"ph"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_pct"`
	LightLux     float64   `json:"light_lux"`
	EcMsCm       float64   `json:"ec_ms_cm"`
}

// Finite reports whether every numeric field is a real number and pH is on scale.
func (r SensorReading) Finite() bool {
	for _, v := range []float64{r.PH, r.TemperatureC, r.HumidityPct, r.LightLux, r.EcMsCm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.PH >= PHMin && r.PH <= PHMax
}

// Value returns the measured quantity named by parameter. Names come from
// operators and from the model, so a few aliases are accepted.
func (r SensorReading) Value(parameter string) (float64, bool) {
	switch normalizeParameter(parameter) {
	case "ph":
		return r.PH, true
	case "temperature", "temp", "temperaturec", "airtemperature":
		return r.TemperatureC, true
	case "humidity", "humiditypct", "relativehumidity", "rh":
		return r.HumidityPct, true
	case "light", "lightlux", "lux", "lightintensity":
		return r.LightLux, true
	case "ec", "ecmscm", "electricalconductivity", "conductivity", "nutrients":
		return r.EcMsCm, true
	}
	return 0, false
}

func normalizeParameter(p string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(p) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}
