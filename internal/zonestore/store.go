// Package zonestore owns the live collection of growing zones and advances it
// one simulation tick at a time.
package zonestore

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/classifier"
	"github.com/LeonardoBeccarini/hydroponics/internal/metrics"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
)

// Update is delivered to subscribers after every tick.
type Update struct {
	Tick  uint64
	At    time.Time
	Zones []entities.Zone
}

type Handler func(Update)

type Option func(*Store)

func WithRandomSource(rng simulator.RandomSource) Option {
	return func(s *Store) { s.rng = rng }
}

func WithDrift(d simulator.Drift) Option {
	return func(s *Store) { s.drift = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store keeps zones in seed order. The slice behind zones is never modified
// after publication; Tick builds a new one and swaps it in.
type Store struct {
	mu    sync.RWMutex
	zones []entities.Zone
	index map[string]int
	ticks uint64

	// tickMu serialises ticks so subscribers observe them in order.
	tickMu   sync.Mutex
	lastSync time.Time

	subMu   sync.Mutex
	subs    map[uint64]Handler
	nextSub uint64

	rng   simulator.RandomSource
	drift simulator.Drift
	now   func() time.Time
	log   zerolog.Logger
}

// New validates the seed and classifies every zone from its reading.
func New(seed []entities.Zone, opts ...Option) (*Store, error) {
	if len(seed) == 0 {
		return nil, &ConfigError{Reason: "no zones configured"}
	}

	s := &Store{
		index: make(map[string]int, len(seed)),
		subs:  make(map[uint64]Handler),
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = simulator.NewSeededSource(time.Now().UnixNano())
	}

	zones := make([]entities.Zone, len(seed))
	for i, z := range seed {
		if z.ID == "" {
			return nil, &ConfigError{Reason: "zone without id"}
		}
		if _, dup := s.index[z.ID]; dup {
			return nil, &ConfigError{ZoneID: z.ID, Reason: "duplicate zone id"}
		}
		if !z.CurrentReading.Finite() {
			return nil, &ConfigError{ZoneID: z.ID, Reason: "reading out of domain"}
		}
		z.Status = classifier.Classify(z.CurrentReading)
		if z.LastSync.After(s.lastSync) {
			s.lastSync = z.LastSync
		}
		s.index[z.ID] = i
		zones[i] = z
	}
	s.zones = zones
	recordGauges(zones)
	return s, nil
}

// Tick advances every zone by one step and notifies subscribers.
func (s *Store) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	at := s.now().UTC()
	if !at.After(s.lastSync) {
		at = s.lastSync.Add(time.Nanosecond)
	}

	s.mu.RLock()
	cur := s.zones
	s.mu.RUnlock()

	next := make([]entities.Zone, len(cur))
	for i, z := range cur {
		r := s.drift.Advance(z.CurrentReading, s.rng)
		r.Timestamp = at
		z.CurrentReading = r
		z.Status = classifier.Classify(r)
		z.LastSync = at
		next[i] = z
	}

	s.mu.Lock()
	s.zones = next
	s.ticks++
	tick := s.ticks
	s.mu.Unlock()
	s.lastSync = at

	metrics.TicksTotal.Inc()
	metrics.TickDurationSeconds.Observe(time.Since(start).Seconds())
	recordGauges(next)
	s.log.Debug().Uint64("tick", tick).Int("zones", len(next)).Msg("zonestore: tick applied")

	s.notify(Update{Tick: tick, At: at, Zones: next})
}

// Snapshot returns a copy; callers may modify it freely.
func (s *Store) Snapshot() []entities.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyZones(s.zones)
}

// Zone looks up a single zone by id.
func (s *Store) Zone(id string) (entities.Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return entities.Zone{}, false
	}
	return s.zones[i], true
}

// Ticks returns how many ticks have been applied.
func (s *Store) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

// Subscribe registers h; the returned func removes it and may be called more than once.
func (s *Store) Subscribe(h Handler) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = h
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(u Update) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = s.subs[id]
	}
	s.subMu.Unlock()

	for _, h := range handlers {
		s.deliver(h, Update{Tick: u.Tick, At: u.At, Zones: copyZones(u.Zones)})
	}
}

func (s *Store) deliver(h Handler, u Update) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Uint64("tick", u.Tick).Msg("zonestore: subscriber panicked")
		}
	}()
	h(u)
}

func copyZones(zs []entities.Zone) []entities.Zone {
	out := make([]entities.Zone, len(zs))
	copy(out, zs)
	return out
}

func recordGauges(zs []entities.Zone) {
	counts := map[entities.HealthStatus]float64{
		entities.StatusOptimal:  0,
		entities.StatusWarning:  0,
		entities.StatusCritical: 0,
	}
	for _, z := range zs {
		counts[z.Status]++
		metrics.ZonePH.WithLabelValues(z.ID).Set(z.CurrentReading.PH)
		metrics.ZoneTemperatureCelsius.WithLabelValues(z.ID).Set(z.CurrentReading.TemperatureC)
	}
	for st, n := range counts {
		metrics.ZonesByStatus.WithLabelValues(string(st)).Set(n)
	}
}
