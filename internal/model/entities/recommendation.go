package entities

import (
	"fmt"
	"strings"
	"time"
)

// Priority of an advisory as reported by the analysis source.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority maps free text case-insensitively. Unknown values return
// PriorityLow and false so callers can log them.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, true
	case "MEDIUM":
		return PriorityMedium, true
	case "HIGH":
		return PriorityHigh, true
	}
	return PriorityLow, false
}

// RecommendationStatus is the operator lifecycle of a recommendation.
type RecommendationStatus string

const (
	RecommendationPending  RecommendationStatus = "PENDING"
	RecommendationApproved RecommendationStatus = "APPROVED"
	RecommendationRejected RecommendationStatus = "REJECTED"
)

// Terminal reports whether no transition leaves s.
func (s RecommendationStatus) Terminal() bool {
	return s == RecommendationApproved || s == RecommendationRejected
}

// ParseOutcome accepts "approve"/"approved"/"reject"/"rejected" in any case.
func ParseOutcome(s string) (RecommendationStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVE", "APPROVED":
		return RecommendationApproved, true
	case "REJECT", "REJECTED":
		return RecommendationRejected, true
	}
	return "", false
}

// Category groups recommendations for the control view.
type Category string

const (
	CategoryNutrient Category = "nutrient"
	CategoryClimate  Category = "climate"
	CategoryLighting Category = "lighting"
)

// CategoryFor derives the category from the advised parameter.
func CategoryFor(parameter string) Category {
	switch normalizeParameter(parameter) {
	case "temperature", "temp", "temperaturec", "airtemperature",
		"humidity", "humiditypct", "relativehumidity", "rh", "co2", "airflow", "ventilation":
		return CategoryClimate
	case "light", "lightlux", "lux", "lightintensity", "photoperiod", "dli":
		return CategoryLighting
	}
	return CategoryNutrient
}

// RawAdvisory is one item returned by the external analysis source.
type RawAdvisory struct {
	Parameter string `json:"parameter"`
	Action    string `json:"action"`
	Priority  string `json:"priority"`
	Rationale string `json:"rationale"`
}

// Recommendation is an operator-actionable advisory with an approve/reject lifecycle.
type Recommendation struct {
	ID           string               `json:"id"`
	ZoneID       string               `json:"zone_id"` // lookup only
	Sequence     uint64               `json:"sequence"`
	Category     Category             `json:"category"`
	Parameter    string               `json:"parameter"`
	Action       string               `json:"action,omitempty"`
	CurrentValue *float64             `json:"current_value,omitempty"`
	Rationale    string               `json:"rationale"`
	Priority     Priority             `json:"priority"`
	Status       RecommendationStatus `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	DecidedAt    *time.Time           `json:"decided_at,omitempty"`
}

// RecommendationID builds the identifier of the seq-th recommendation of a zone.
func RecommendationID(zoneID string, seq uint64) string {
	return fmt.Sprintf("%s-%d", zoneID, seq)
}
