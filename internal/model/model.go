package model

import (
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	SensorReading     = entities.SensorReading
	Zone              = entities.Zone
	HealthStatus      = entities.HealthStatus
	Recommendation    = entities.Recommendation
	RawAdvisory       = entities.RawAdvisory
	ZoneSnapshotEvent = messages.ZoneSnapshotEvent
	DecisionCommand   = messages.DecisionCommand
	DecisionEvent     = messages.DecisionEvent
)

const (
	StatusOptimal  = entities.StatusOptimal
	StatusWarning  = entities.StatusWarning
	StatusCritical = entities.StatusCritical
)
