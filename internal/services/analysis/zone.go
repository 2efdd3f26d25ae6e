package analysis

import (
	"context"
	"fmt"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

var zoneSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"status":  map[string]any{"type": "STRING", "description": "OPTIMAL, WARNING, or CRITICAL"},
		"summary": map[string]any{"type": "STRING"},
		"recommendations": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"parameter": map[string]any{"type": "STRING"},
					"action":    map[string]any{"type": "STRING"},
					"priority":  map[string]any{"type": "STRING", "description": "LOW, MEDIUM or HIGH"},
					"rationale": map[string]any{"type": "STRING"},
				},
			},
		},
	},
	"required": []string{"status", "summary", "recommendations"},
}

type zoneAssessment struct {
	Status          string                 `json:"status"`
	Summary         string                 `json:"summary"`
	Recommendations []entities.RawAdvisory `json:"recommendations"`
}

func zonePrompt(z entities.Zone) string {
	r := z.CurrentReading
	return fmt.Sprintf(`You are an expert hydroponics agronomist. Analyze the following data for %s growing %s (%s):
- pH: %.2f
- Temperature: %.1f°C
- Humidity: %.0f%%
- Light: %.0f lux
- EC: %.2f mS/cm

Provide a JSON assessment. Each recommendation names the parameter, a concrete action, a priority (LOW, MEDIUM or HIGH) and a short rationale.`,
		z.Name, z.CropName, z.GrowthStage, r.PH, r.TemperatureC, r.HumidityPct, r.LightLux, r.EcMsCm)
}

// AnalyzeZone asks the model for advisories on the zone's current reading.
// Its signature matches advisor.AnalyzeFunc.
func (c *Client) AnalyzeZone(ctx context.Context, z entities.Zone) ([]entities.RawAdvisory, error) {
	var out zoneAssessment
	if err := c.generate(ctx, "zone", []part{{Text: zonePrompt(z)}}, zoneSchema, &out); err != nil {
		return nil, fmt.Errorf("analyze zone %s: %w", z.ID, err)
	}
	c.log.Debug().
		Str("zone", z.ID).
		Str("model_status", out.Status).
		Str("summary", out.Summary).
		Int("recommendations", len(out.Recommendations)).
		Msg("analysis: zone assessed")
	if out.Recommendations == nil {
		return []entities.RawAdvisory{}, nil
	}
	return out.Recommendations, nil
}
