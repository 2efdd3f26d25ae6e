package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

const DefaultCrop = "Lettuce"

var plantSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"healthScore":    map[string]any{"type": "NUMBER"},
		"detectedIssues": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"severity":       map[string]any{"type": "STRING"},
		"treatmentPlan":  map[string]any{"type": "STRING"},
		"confidence":     map[string]any{"type": "NUMBER"},
	},
	"required": []string{"healthScore", "detectedIssues", "severity", "treatmentPlan", "confidence"},
}

// AnalyzePlantImage sends the photo inline and returns the model's verdict.
func (c *Client) AnalyzePlantImage(ctx context.Context, image []byte, mimeType, crop string) (entities.PlantHealthAnalysis, error) {
	if len(image) == 0 {
		return entities.PlantHealthAnalysis{}, ErrNoImage
	}
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = "image/jpeg"
	}
	if crop = strings.TrimSpace(crop); crop == "" {
		crop = DefaultCrop
	}

	parts := []part{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: fmt.Sprintf("Analyze the health of this %s plant. Identify any diseases, pests, or deficiencies. Return JSON with a healthScore from 0 to 100 and a confidence from 0 to 1.", crop)},
	}

	var out entities.PlantHealthAnalysis
	if err := c.generate(ctx, "plant", parts, plantSchema, &out); err != nil {
		return entities.PlantHealthAnalysis{}, fmt.Errorf("analyze plant image: %w", err)
	}
	out.HealthScore = clampRange(out.HealthScore, 0, 100)
	out.Confidence = normalizeConfidence(out.Confidence)
	if out.DetectedIssues == nil {
		out.DetectedIssues = []string{}
	}
	return out, nil
}

// normalizeConfidence accepts both 0-1 and percentage answers.
func normalizeConfidence(v float64) float64 {
	if v > 1 && v <= 100 {
		v /= 100
	}
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
