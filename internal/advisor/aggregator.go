// Package advisor turns per-zone analysis output into recommendations that
// operators approve or reject.
package advisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// AnalyzeFunc asks the analysis source for advisories on one zone.
type AnalyzeFunc func(ctx context.Context, zone entities.Zone) ([]entities.RawAdvisory, error)

type Config struct {
	CallTimeout time.Duration // per zone
	Concurrency int
}

func DefaultConfig() Config {
	return Config{CallTimeout: 30 * time.Second, Concurrency: 4}
}

// RefreshReport describes one refresh run.
type RefreshReport struct {
	RunID    string                    `json:"run_id"`
	Added    []entities.Recommendation `json:"added"`
	Replaced int                       `json:"replaced"`
	Warnings []ZoneFailure             `json:"-"`
}

// Aggregator holds recommendations in creation order.
type Aggregator struct {
	mu    sync.RWMutex
	items []entities.Recommendation
	index map[string]int
	seq   map[string]uint64

	obsMu     sync.RWMutex
	observers []func(entities.Recommendation)

	cfg Config
	now func() time.Time
	log zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Aggregator {
	def := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Aggregator{
		index: make(map[string]int),
		seq:   make(map[string]uint64),
		cfg:   cfg,
		now:   time.Now,
		log:   logger,
	}
}

// SetClock overrides the time source for CreatedAt/DecidedAt.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

type zoneResult struct {
	zone       entities.Zone
	advisories []entities.RawAdvisory
	err        error
}

// Refresh analyses every zone concurrently and merges the results in one step.
// Zones that answered replace their still-pending recommendations; everything
// else is kept. If every zone fails, nothing changes and *AnalysisError is returned.
func (a *Aggregator) Refresh(ctx context.Context, zones []entities.Zone, analyze AnalyzeFunc) (RefreshReport, error) {
	report := RefreshReport{RunID: uuid.NewString()}
	if len(zones) == 0 {
		return report, nil
	}
	log := a.log.With().Str("run_id", report.RunID).Logger()

	results := make([]zoneResult, len(zones))
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, z := range zones {
		i, z := i, z
		g.Go(func() error {
			results[i] = a.analyzeZone(ctx, z, analyze)
			return nil
		})
	}
	_ = g.Wait()

	var ok []zoneResult
	for _, r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).Str("zone", r.zone.ID).Msg("advisor: zone analysis failed")
			report.Warnings = append(report.Warnings, ZoneFailure{ZoneID: r.zone.ID, Err: r.err})
			continue
		}
		ok = append(ok, r)
	}

	if len(ok) == 0 {
		metrics.RefreshTotal.WithLabelValues("failed").Inc()
		return report, &AnalysisError{RunID: report.RunID, Failures: report.Warnings}
	}

	created := a.now().UTC()
	a.mu.Lock()
	report.Added, report.Replaced = a.merge(ok, created, log)
	pending := a.countPendingLocked()
	a.mu.Unlock()

	metrics.RecommendationsPending.Set(float64(pending))
	if len(report.Warnings) > 0 {
		metrics.RefreshTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.RefreshTotal.WithLabelValues("ok").Inc()
	}
	log.Info().
		Int("added", len(report.Added)).
		Int("replaced", report.Replaced).
		Int("failed_zones", len(report.Warnings)).
		Msg("advisor: refresh completed")
	return report, nil
}

// analyzeZone bounds one call by CallTimeout and abandons it on expiry even
// if analyze ignores its context.
func (a *Aggregator) analyzeZone(ctx context.Context, z entities.Zone, analyze AnalyzeFunc) zoneResult {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	done := make(chan zoneResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- zoneResult{zone: z, err: fmt.Errorf("analyzer panicked: %v", r)}
			}
		}()
		adv, err := analyze(callCtx, z)
		done <- zoneResult{zone: z, advisories: adv, err: err}
	}()

	select {
	case r := <-done:
		return r
	case <-callCtx.Done():
		return zoneResult{zone: z, err: fmt.Errorf("analysis of zone %s: %w", z.ID, callCtx.Err())}
	}
}

// merge must be called with a.mu held.
func (a *Aggregator) merge(results []zoneResult, created time.Time, log zerolog.Logger) ([]entities.Recommendation, int) {
	refreshed := make(map[string]struct{}, len(results))
	for _, r := range results {
		refreshed[r.zone.ID] = struct{}{}
	}

	kept := a.items[:0:0]
	replaced := 0
	for _, rec := range a.items {
		if _, ok := refreshed[rec.ZoneID]; ok && rec.Status == entities.RecommendationPending {
			replaced++
			continue
		}
		kept = append(kept, rec)
	}

	var added []entities.Recommendation
	for _, r := range results {
		for _, adv := range r.advisories {
			rec := a.build(r.zone, adv, created, log)
			kept = append(kept, rec)
			added = append(added, clone(rec))
		}
	}

	a.items = kept
	a.index = make(map[string]int, len(kept))
	for i, rec := range kept {
		a.index[rec.ID] = i
	}
	return added, replaced
}

func (a *Aggregator) build(z entities.Zone, adv entities.RawAdvisory, created time.Time, log zerolog.Logger) entities.Recommendation {
	a.seq[z.ID]++
	seq := a.seq[z.ID]

	prio, known := entities.ParsePriority(adv.Priority)
	if !known {
		log.Warn().Str("zone", z.ID).Str("priority", adv.Priority).Msg("advisor: unknown priority, using LOW")
	}

	rec := entities.Recommendation{
		ID:        entities.RecommendationID(z.ID, seq),
		ZoneID:    z.ID,
		Sequence:  seq,
		Category:  entities.CategoryFor(adv.Parameter),
		Parameter: adv.Parameter,
		Action:    adv.Action,
		Rationale: adv.Rationale,
		Priority:  prio,
		Status:    entities.RecommendationPending,
		CreatedAt: created,
	}
	if v, ok := z.CurrentReading.Value(adv.Parameter); ok {
		rec.CurrentValue = &v
	}
	return rec
}

// Decide moves a PENDING recommendation to APPROVED or REJECTED.
func (a *Aggregator) Decide(id string, outcome entities.RecommendationStatus) (entities.Recommendation, error) {
	a.mu.Lock()
	i, ok := a.index[id]
	if !ok {
		a.mu.Unlock()
		return entities.Recommendation{}, &NotFoundError{ID: id}
	}
	rec := &a.items[i]
	if !outcome.Terminal() || rec.Status != entities.RecommendationPending {
		from := rec.Status
		a.mu.Unlock()
		return entities.Recommendation{}, &InvalidTransitionError{ID: id, From: from, To: outcome}
	}
	decidedAt := a.now().UTC()
	rec.Status = outcome
	rec.DecidedAt = &decidedAt
	out := clone(*rec)
	pending := a.countPendingLocked()
	a.mu.Unlock()

	metrics.DecisionsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.RecommendationsPending.Set(float64(pending))
	a.log.Info().Str("id", id).Str("status", string(outcome)).Msg("advisor: recommendation decided")

	a.obsMu.RLock()
	obs := append([]func(entities.Recommendation){}, a.observers...)
	a.obsMu.RUnlock()
	for _, fn := range obs {
		fn(clone(out))
	}
	return out, nil
}

// OnDecision registers fn to run after every successful Decide.
func (a *Aggregator) OnDecision(fn func(entities.Recommendation)) {
	a.obsMu.Lock()
	a.observers = append(a.observers, fn)
	a.obsMu.Unlock()
}

func (a *Aggregator) Pending() []entities.Recommendation {
	return a.filter(func(r entities.Recommendation) bool { return r.Status == entities.RecommendationPending })
}

func (a *Aggregator) Decided() []entities.Recommendation {
	return a.filter(func(r entities.Recommendation) bool { return r.Status.Terminal() })
}

func (a *Aggregator) All() []entities.Recommendation {
	return a.filter(func(entities.Recommendation) bool { return true })
}

func (a *Aggregator) Get(id string) (entities.Recommendation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.index[id]
	if !ok {
		return entities.Recommendation{}, false
	}
	return clone(a.items[i]), true
}

func (a *Aggregator) filter(keep func(entities.Recommendation) bool) []entities.Recommendation {
	a.mu.RLock()
	out := make([]entities.Recommendation, 0, len(a.items))
	for _, r := range a.items {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func (a *Aggregator) countPendingLocked() int {
	n := 0
	for _, r := range a.items {
		if r.Status == entities.RecommendationPending {
			n++
		}
	}
	return n
}

func clone(r entities.Recommendation) entities.Recommendation {
	if r.CurrentValue != nil {
		v := *r.CurrentValue
		r.CurrentValue = &v
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		r.DecidedAt = &t
	}
	return r
}
