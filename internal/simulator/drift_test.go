package simulator

import (
	"math"
	"testing"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

func reading(ph, temp float64) entities.SensorReading {
	return entities.SensorReading{PH: ph, TemperatureC: temp, HumidityPct: 65, LightLux: 25000, EcMsCm: 1.8}
}

func TestAdvanceMidpointIsIdentity(t *testing.T) {
	r := reading(5.4, 22.1)
	next := Advance(r, ConstantSource(0.5))
	if next != r {
		t.Fatalf("rng 0.5 should not move the reading: %+v", next)
	}
}

func TestAdvanceDrawOrderTemperatureFirst(t *testing.T) {
	// 0 -> temperature -0.2; 1 -> pH +0.05
	next := Advance(reading(6.0, 20), NewSequenceSource(0, 1))
	if math.Abs(next.TemperatureC-19.8) > 1e-9 {
		t.Fatalf("temperature = %v, want 19.8", next.TemperatureC)
	}
	if math.Abs(next.PH-6.05) > 1e-9 {
		t.Fatalf("pH = %v, want 6.05", next.PH)
	}
}

func TestAdvancePassesOtherFieldsThrough(t *testing.T) {
	r := reading(6.0, 20)
	next := Advance(r, ConstantSource(0.9))
	if next.HumidityPct != r.HumidityPct || next.LightLux != r.LightLux || next.EcMsCm != r.EcMsCm {
		t.Fatalf("untouched fields changed: %+v", next)
	}
}

func TestAdvanceClampsPH(t *testing.T) {
	if got := Advance(reading(13.99, 20), ConstantSource(0.999)).PH; got != 14 {
		t.Fatalf("upper clamp: %v", got)
	}
	if got := Advance(reading(0.01, 20), ConstantSource(0)).PH; got != 0 {
		t.Fatalf("lower clamp: %v", got)
	}
}

func TestAdvanceKeepsPHInRangeOverManySteps(t *testing.T) {
	rng := NewSeededSource(42)
	r := reading(6.2, 24.5)
	for i := 0; i < 100000; i++ {
		r = Advance(r, rng)
		if r.PH < entities.PHMin || r.PH > entities.PHMax || !r.Finite() {
			t.Fatalf("step %d: reading left the domain: %+v", i, r)
		}
	}
}

func TestAdvanceDeterministicForSeed(t *testing.T) {
	a, b := NewSeededSource(7), NewSeededSource(7)
	ra, rb := reading(6.2, 24.5), reading(6.2, 24.5)
	for i := 0; i < 50; i++ {
		ra, rb = Advance(ra, a), Advance(rb, b)
	}
	if ra != rb {
		t.Fatalf("same seed diverged: %+v vs %+v", ra, rb)
	}
}

func TestDriftTemperatureBounds(t *testing.T) {
	d := Drift{TempBounds: &Bounds{Min: 10, Max: 40}}
	if got := d.Advance(reading(6, 39.9), ConstantSource(1)).TemperatureC; got != 40 {
		t.Fatalf("upper temperature bound: %v", got)
	}
	if got := d.Advance(reading(6, 10.1), ConstantSource(0)).TemperatureC; got != 10 {
		t.Fatalf("lower temperature bound: %v", got)
	}
}
