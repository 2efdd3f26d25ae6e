// Package classifier derives a zone's health status from its latest reading.
package classifier

import "github.com/LeonardoBeccarini/hydroponics/internal/model/entities"

// Acceptable pH band, bounds included.
const (
	PHLow  = 5.5
	PHHigh = 6.8
)

// Classify is total: temperature, humidity, light and EC do not affect the result.
func Classify(r entities.SensorReading) entities.HealthStatus {
	if r.PH < PHLow || r.PH > PHHigh {
		return entities.StatusWarning
	}
	return entities.StatusOptimal
}
