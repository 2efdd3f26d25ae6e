package entities

import "time"

// PlantHealthAnalysis is the image-based assessment returned by the vision model.
// It is displayed as is.
type PlantHealthAnalysis struct {
	HealthScore    float64  `json:"healthScore"` // 0-100
	DetectedIssues []string `json:"detectedIssues"`
	Severity       string   `json:"severity"` // none|low|medium|high
	TreatmentPlan  string   `json:"treatmentPlan"`
	Confidence     float64  `json:"confidence"` // 0-1
}

// YieldForecast is the harvest prediction returned by the model.
type YieldForecast struct {
	EstimatedYieldKg float64  `json:"estimatedYieldKg"`
	HarvestDate      string   `json:"harvestDate"`
	Confidence       float64  `json:"confidence"`
	OptimizationTips []string `json:"optimizationTips"`
}

// HistoryPoint is an averaged bucket of readings used as yield model input.
type HistoryPoint struct {
	ZoneID       string    `json:"zone_id"`
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temp"`
	HumidityPct  float64   `json:"humidity"`
	PH           float64   `json:"pH"`
	Samples      int       `json:"samples"`
}
