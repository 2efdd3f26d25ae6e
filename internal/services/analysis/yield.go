package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

var yieldSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"estimatedYieldKg": map[string]any{"type": "NUMBER"},
		"harvestDate":      map[string]any{"type": "STRING"},
		"confidence":       map[string]any{"type": "NUMBER"},
		"optimizationTips": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
	},
}

// PredictYield forecasts the harvest from bucketed history.
func (c *Client) PredictYield(ctx context.Context, history []entities.HistoryPoint) (entities.YieldForecast, error) {
	if len(history) == 0 {
		return entities.YieldForecast{}, ErrNoHistory
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return entities.YieldForecast{}, fmt.Errorf("encode history: %w", err)
	}

	prompt := fmt.Sprintf("Predict harvest yield based on these %d hourly metrics: %s. Return JSON.", len(history), raw)

	var out entities.YieldForecast
	if err := c.generate(ctx, "yield", []part{{Text: prompt}}, yieldSchema, &out); err != nil {
		return entities.YieldForecast{}, fmt.Errorf("predict yield: %w", err)
	}
	out.Confidence = normalizeConfidence(out.Confidence)
	if out.OptimizationTips == nil {
		out.OptimizationTips = []string{}
	}
	return out, nil
}
