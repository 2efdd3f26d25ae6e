package messages

import "time"

// DecisionCommand arrives from operator consoles over MQTT (QoS 1, may be redelivered).
type DecisionCommand struct {
	RecommendationID string    `json:"recommendation_id"`
	Outcome          string    `json:"outcome"` // approve|reject
	Operator         string    `json:"operator,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// DecisionEvent is published once a recommendation leaves PENDING.
type DecisionEvent struct {
	RecommendationID string    `json:"recommendation_id"`
	ZoneID           string    `json:"zone_id"`
	Parameter        string    `json:"parameter"`
	Status           string    `json:"status"` // APPROVED | REJECTED
	Timestamp        time.Time `json:"timestamp"`
}
