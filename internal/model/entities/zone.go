package entities

import "time"

// HealthStatus is the classification derived from a zone's latest reading.
type HealthStatus string

const (
	StatusOptimal HealthStatus = "OPTIMAL"
	StatusWarning HealthStatus = "WARNING"
	// StatusCritical is reserved: no threshold currently produces it.
	StatusCritical HealthStatus = "CRITICAL"
)

// Zone is a growing compartment with one sensor reading and one derived status.
type Zone struct {
	ID             string        `json:"id"` // stable, never reassigned
	Name           string        `json:"name"`
	CropName       string        `json:"crop_name"`
	GrowthStage    string        `json:"growth_stage"`
	LastSync       time.Time     `json:"last_sync"`
	Status         HealthStatus  `json:"status"`
	CurrentReading SensorReading `json:"current_reading"`
}
