package simulator

import (
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// ====== Tunables ======
const (
	// tempSpread: perturbazione uniforme in [-0.2, +0.2] °C per tick.
	tempSpread = 0.4

	// phSpread: perturbazione uniforme in [-0.05, +0.05] per tick, poi clamp su [0, 14].
	phSpread = 0.1
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// Bounds is a closed interval.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Drift advances readings by one randomized tick. The zero value leaves
// temperature unbounded; TempBounds caps it when set.
type Drift struct {
	TempBounds *Bounds
}

// Advance returns the next reading. Two values are drawn from rng, temperature
// first, then pH; every other field passes through unchanged.
func (d Drift) Advance(r entities.SensorReading, rng RandomSource) entities.SensorReading {
	next := r
	next.TemperatureC = r.TemperatureC + (rng.Float64()*tempSpread - tempSpread/2)
	next.PH = clamp(r.PH+(rng.Float64()*phSpread-phSpread/2), entities.PHMin, entities.PHMax)

	if d.TempBounds != nil {
		next.TemperatureC = clamp(next.TemperatureC, d.TempBounds.Min, d.TempBounds.Max)
	}
	return next
}

// Advance applies the unbounded drift.
func Advance(r entities.SensorReading, rng RandomSource) entities.SensorReading {
	return Drift{}.Advance(r, rng)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
