package messages

import (
	"time"

	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// ZoneSnapshotEvent is published for every zone after each tick.
type ZoneSnapshotEvent struct {
	ZoneID    string                 `json:"zone_id"`
	Name      string                 `json:"name"`
	CropName  string                 `json:"crop_name"`
	Status    entities.HealthStatus  `json:"status"`
	Reading   entities.SensorReading `json:"reading"`
	Tick      uint64                 `json:"tick"`
	Timestamp time.Time              `json:"timestamp"`
}
