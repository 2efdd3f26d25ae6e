package simulator

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// DefaultZones returns the two reference growing zones.
func DefaultZones(now time.Time) []entities.Zone {
	now = now.UTC()
	return []entities.Zone{
		{
			ID:          "z1",
			Name:        "Growth Zone A",
			CropName:    "Butterhead Lettuce",
			GrowthStage: "Vegetative",
			LastSync:    now,
			CurrentReading: entities.SensorReading{
				Timestamp:    now,
				PH:           6.2,
				TemperatureC: 24.5,
				HumidityPct:  65,
				LightLux:     25000,
				EcMsCm:       1.8,
			},
		},
		{
			ID:          "z2",
			Name:        "Growth Zone B",
			CropName:    "Basil (Genovese)",
			GrowthStage: "Early Growth",
			LastSync:    now,
			CurrentReading: entities.SensorReading{
				Timestamp:    now,
				PH:           5.4,
				TemperatureC: 22.1,
				HumidityPct:  72,
				LightLux:     18000,
				EcMsCm:       2.1,
			},
		},
	}
}

// LoadZones legge le zone da un file JSON (array di oggetti). Accetta sia i
// nomi "lunghi" sia quelli brevi usati dalla dashboard (crop, stage, temp, ...).
func LoadZones(path string, now time.Time) ([]entities.Zone, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var recs []map[string]any
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	now = now.UTC()
	out := make([]entities.Zone, 0, len(recs))
	for i, rec := range recs {
		z := entities.Zone{
			ID:          str(rec, "id"),
			Name:        str(rec, "name"),
			CropName:    str(rec, "crop_name", "crop"),
			GrowthStage: str(rec, "growth_stage", "stage"),
			LastSync:    now,
		}
		if z.ID == "" {
			return nil, fmt.Errorf("zone #%d without id", i)
		}

		data, _ := firstMap(rec, "current_reading", "currentData", "reading")
		z.CurrentReading = entities.SensorReading{
			Timestamp:    now,
			PH:           toF64(pick(data, "ph", "pH")),
			TemperatureC: toF64(pick(data, "temperature_c", "temp")),
			HumidityPct:  toF64(pick(data, "humidity_pct", "humidity")),
			LightLux:     toF64(pick(data, "light_lux", "light")),
			EcMsCm:       toF64(pick(data, "ec_ms_cm", "ec")),
		}
		if !z.CurrentReading.Finite() {
			return nil, fmt.Errorf("zone %s: reading out of domain", z.ID)
		}
		out = append(out, z)
	}
	return out, nil
}

func str(m map[string]any, keys ...string) string {
	if s, ok := pick(m, keys...).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstMap(m map[string]any, keys ...string) (map[string]any, bool) {
	if v, ok := pick(m, keys...).(map[string]any); ok {
		return v, true
	}
	return map[string]any{}, false
}

// helper per convertire float/string -> float64
func toF64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64); err == nil {
			return f
		}
	}
	return 0
}
