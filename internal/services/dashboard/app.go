// Package dashboard serves the operator HTTP API: zones, recommendations,
// plant health checks and yield forecasts.
package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/advisor"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/telemetry"
)

type ZoneReader interface {
	Snapshot() []entities.Zone
	Zone(id string) (entities.Zone, bool)
}

// Advisor is implemented by *advisor.Aggregator.
type Advisor interface {
	Refresh(ctx context.Context, zones []entities.Zone, analyze advisor.AnalyzeFunc) (advisor.RefreshReport, error)
	Decide(id string, outcome entities.RecommendationStatus) (entities.Recommendation, error)
	Pending() []entities.Recommendation
	Decided() []entities.Recommendation
	All() []entities.Recommendation
}

type PlantAnalyzer interface {
	AnalyzePlantImage(ctx context.Context, image []byte, mimeType, crop string) (entities.PlantHealthAnalysis, error)
}

type YieldForecaster interface {
	PredictYield(ctx context.Context, history []entities.HistoryPoint) (entities.YieldForecast, error)
}

// Probe is one dependency check for /healthz and /readyz. Optional probes
// only degrade health.
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// App wires the HTTP handlers to the engine. Analyze, Plants and Yield may
// be nil when no analysis source is configured; their endpoints answer 503.
type App struct {
	Zones   ZoneReader
	Advisor Advisor
	Analyze advisor.AnalyzeFunc
	Plants  PlantAnalyzer
	Yield   YieldForecaster
	History telemetry.HistorySource
	Probes  []Probe
	Log     zerolog.Logger

	RefreshTimeout time.Duration // whole run
	MaxImageBytes  int64
}

func (a *App) refreshTimeout() time.Duration {
	if a.RefreshTimeout > 0 {
		return a.RefreshTimeout
	}
	return 2 * time.Minute
}

func (a *App) maxImageBytes() int64 {
	if a.MaxImageBytes > 0 {
		return a.MaxImageBytes
	}
	return 10 << 20
}
