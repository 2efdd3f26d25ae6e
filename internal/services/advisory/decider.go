// Package advisory exposes operator decisions on recommendations over MQTT
// and gRPC, and publishes decision events.
package advisory

import "github.com/LeonardoBeccarini/hydroponics/internal/model/entities"

// Decider is implemented by *advisor.Aggregator.
type Decider interface {
	Decide(id string, outcome entities.RecommendationStatus) (entities.Recommendation, error)
	Pending() []entities.Recommendation
	Decided() []entities.Recommendation
	Get(id string) (entities.Recommendation, bool)
}
